package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

type fakeAuth struct {
	loginReq   models.LoginRequest
	loginErr   error
	logoutUser string
	logoutTok  string
}

func (f *fakeAuth) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.loginReq = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (f *fakeAuth) RefreshToken(_ context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	return &models.RefreshTokenResponse{AccessToken: "access-2"}, nil
}

func (f *fakeAuth) Logout(_ context.Context, refreshToken string, userID string, _ models.LoginRequest) error {
	f.logoutTok, f.logoutUser = refreshToken, userID
	return nil
}

func (f *fakeAuth) ChangePassword(_ context.Context, _ string, _ models.ChangePasswordRequest) error {
	return nil
}

func (f *fakeAuth) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleProvincialDevelopmentOfficer}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	fake := &fakeAuth{}
	handler := NewAuthHandler(fake)

	c, rec := newTrainingRequestContext(http.MethodPost, "/auth/login", `{"email":"pdo@example.org","password":"secret"}`, nil)
	c.Request.Header.Set("User-Agent", "test-agent")
	handler.Login(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdo@example.org", fake.loginReq.Email)
	assert.Equal(t, "test-agent", fake.loginReq.UserAgent)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "access", envelope.Data["access_token"])
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	handler := NewAuthHandler(&fakeAuth{loginErr: appErrors.ErrInvalidCredentials})

	c, rec := newTrainingRequestContext(http.MethodPost, "/auth/login", `{"email":"pdo@example.org","password":"wrong"}`, nil)
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerLogoutUsesClaims(t *testing.T) {
	fake := &fakeAuth{}
	handler := NewAuthHandler(fake)

	c, _ := newTrainingRequestContext(http.MethodPost, "/auth/logout", `{"refresh_token":"tok"}`, pdoClaims())
	handler.Logout(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "pdo-1", fake.logoutUser)
	assert.Equal(t, "tok", fake.logoutTok)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&fakeAuth{})

	c, rec := newTrainingRequestContext(http.MethodGet, "/auth/me", "", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTrainingRequestContext(http.MethodGet, "/auth/me", "", pdoClaims())
	handler.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "pdo-1", envelope.Data["id"])
}

func TestAuthHandlerChangePasswordValidation(t *testing.T) {
	handler := NewAuthHandler(&fakeAuth{})

	c, rec := newTrainingRequestContext(http.MethodPost, "/auth/change-password", `{"old_password":`, pdoClaims())
	handler.ChangePassword(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, _ = newTrainingRequestContext(http.MethodPost, "/auth/change-password", `{"old_password":"a","new_password":"longer-one"}`, pdoClaims())
	handler.ChangePassword(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
}

func TestAuthHandlerRefresh(t *testing.T) {
	handler := NewAuthHandler(&fakeAuth{})

	c, rec := newTrainingRequestContext(http.MethodPost, "/auth/refresh", `{"refresh_token":"r"}`, nil)
	handler.Refresh(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "access-2", envelope.Data["access_token"])
}
