package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/service"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

type fakeExporter struct {
	lastQuery dto.ExportQuery
}

func (f *fakeExporter) Export(_ context.Context, actor workflow.Actor, query dto.ExportQuery) (*service.ExportResult, error) {
	f.lastQuery = query
	if !actor.Role.IsApprover() {
		return nil, appErrors.ErrForbidden
	}
	return &service.ExportResult{Filename: "training-requests.csv", ContentType: "text/csv", Body: []byte("id\n"), Rows: 1}, nil
}

func TestExportHandlerStreamsAttachment(t *testing.T) {
	fake := &fakeExporter{}
	handler := NewExportHandler(fake)

	c, rec := newTrainingRequestContext(http.MethodGet, "/training-requests/export?format=CSV&status=completed", "", &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	handler.TrainingRequests(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "csv", fake.lastQuery.Format)
	assert.Equal(t, []models.TrainingStatus{models.StatusCompleted}, fake.lastQuery.Status)
	assert.Equal(t, "1", rec.Header().Get("X-Export-Rows"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "training-requests.csv")
}

func TestExportHandlerForbidden(t *testing.T) {
	handler := NewExportHandler(&fakeExporter{})

	c, rec := newTrainingRequestContext(http.MethodGet, "/training-requests/export", "", pdoClaims())
	handler.TrainingRequests(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
