package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/middleware"
	"github.com/lifemakers/pirates-api/internal/models"
)

type fakeDashboardSrv struct {
	stats    *models.DashboardStats
	hit      bool
	err      error
	lastUser string
}

func (f *fakeDashboardSrv) Stats(_ context.Context, userID string) (*models.DashboardStats, bool, error) {
	f.lastUser = userID
	return f.stats, f.hit, f.err
}

func TestDashboardHandlerStatsRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)

	handler.Stats(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerStatsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := &fakeDashboardSrv{
		stats: &models.DashboardStats{UserID: "pdo-1", Total: 4, Pending: 2},
		hit:   true,
	}
	handler := NewDashboardHandler(service)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "pdo-1", Role: models.RoleProvincialDevelopmentOfficer})

	handler.Stats(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pdo-1", service.lastUser)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.EqualValues(t, 4, envelope.Data["total_requests"])
}

func TestDashboardHandlerStatsError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{err: errors.New("boom")})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/stats", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "pdo-1", Role: models.RoleProvincialDevelopmentOfficer})

	handler.Stats(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error map[string]interface{} `json:"error"`
}
