package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

type fakeInbox struct {
	lastUser   string
	unreadOnly bool
	page       int
	markErr    error
	markedID   string
}

func (f *fakeInbox) List(_ context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	f.lastUser, f.unreadOnly, f.page = userID, unreadOnly, page
	return []models.Notification{{ID: "n-1", UserID: userID}}, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: 1}, nil
}

func (f *fakeInbox) UnreadCount(_ context.Context, userID string) (int, error) {
	f.lastUser = userID
	return 7, nil
}

func (f *fakeInbox) MarkRead(_ context.Context, id, userID string) error {
	f.markedID, f.lastUser = id, userID
	return f.markErr
}

func (f *fakeInbox) MarkAllRead(_ context.Context, userID string) (int64, error) {
	f.lastUser = userID
	return 3, nil
}

func TestNotificationHandlerList(t *testing.T) {
	fake := &fakeInbox{}
	handler := NewNotificationHandler(fake)

	c, rec := newTrainingRequestContext(http.MethodGet, "/notifications?unread=true&page=2", "", pdoClaims())
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdo-1", fake.lastUser)
	assert.True(t, fake.unreadOnly)
	assert.Equal(t, 2, fake.page)
}

func TestNotificationHandlerUnreadCount(t *testing.T) {
	handler := NewNotificationHandler(&fakeInbox{})

	c, rec := newTrainingRequestContext(http.MethodGet, "/notifications/unread-count", "", pdoClaims())
	handler.UnreadCount(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 7, envelope.Data["unread"])
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	fake := &fakeInbox{}
	handler := NewNotificationHandler(fake)

	c, _ := newTrainingRequestContext(http.MethodPost, "/notifications/n-1/read", "", pdoClaims())
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "n-1", fake.markedID)

	fake.markErr = appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	c, rec := newTrainingRequestContext(http.MethodPost, "/notifications/n-2/read", "", pdoClaims())
	c.Params = gin.Params{{Key: "id", Value: "n-2"}}
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotificationHandlerMarkAllRead(t *testing.T) {
	handler := NewNotificationHandler(&fakeInbox{})

	c, rec := newTrainingRequestContext(http.MethodPost, "/notifications/read-all", "", pdoClaims())
	handler.MarkAllRead(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.EqualValues(t, 3, envelope.Data["updated"])
}
