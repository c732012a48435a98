package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/service"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/middleware/requestid"
)

type validatorStub struct {
	claims *models.JWTClaims
	err    error
	token  string
}

func (v *validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	v.token = token
	return v.claims, v.err
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected", handlers...)
	return r
}

func perform(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	valid := &models.JWTClaims{UserID: "u-1", Role: models.RoleProgramSupervisor}

	cases := []struct {
		name   string
		header string
		stub   *validatorStub
		status int
	}{
		{"missing header", "", &validatorStub{claims: valid}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &validatorStub{claims: valid}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", &validatorStub{err: appErrors.ErrUnauthorized}, http.StatusUnauthorized},
		{"unknown role", "Bearer tok", &validatorStub{claims: &models.JWTClaims{UserID: "u-1", Role: "coordinator"}}, http.StatusUnauthorized},
		{"valid", "Bearer tok", &validatorStub{claims: valid}, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := perform(newRouter(JWT(tc.stub)), tc.header)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestJWTStoresClaims(t *testing.T) {
	stub := &validatorStub{claims: &models.JWTClaims{UserID: "u-1", Role: models.RoleTrainer}}
	var seen *models.JWTClaims
	r := newRouter(JWT(stub), func(c *gin.Context) {
		seen = Claims(c)
		c.Next()
	})

	rec := perform(r, "bearer  tok ")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", stub.token)
	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.UserID)
}

func TestRequireRoles(t *testing.T) {
	withRole := func(role models.UserRole) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: role})
			c.Next()
		}
	}

	rec := perform(newRouter(withRole(models.RoleTrainer), RequireRoles(models.RoleTrainer)), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(newRouter(withRole(models.RoleProvincialDevelopmentOfficer), RequireRoles(models.RoleTrainer)), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = perform(newRouter(RequireRoles(models.RoleTrainer)), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, role := range []models.UserRole{models.RoleProjectManager, models.RoleProgramSupervisor, models.RoleDevelopmentManagementOfficer, models.RoleAdmin} {
		rec = perform(newRouter(withRole(role), RequireApprover()), "")
		assert.Equal(t, http.StatusOK, rec.Code, role)
	}
	rec = perform(newRouter(withRole(models.RoleTrainer), RequireApprover()), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFeatureGate(t *testing.T) {
	rec := perform(newRouter(FeatureGate(false, "exports")), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "FEATURE_DISABLED")

	rec = perform(newRouter(FeatureGate(true, "exports")), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	metrics := service.NewMetricsService()
	rec := perform(newRouter(Metrics(metrics)), "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(1), metrics.Snapshot().RequestsTotal)
}

func TestResponseMetaCacheHit(t *testing.T) {
	var meta ResponseMeta
	r := newRouter(requestid.Middleware(), WithResponseMeta(), func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = Meta(c)
		c.Next()
	})

	perform(r, "")

	require.NotNil(t, meta)
	assert.Equal(t, true, meta["cache_hit"])
	assert.Contains(t, meta, "processing_time_ms")
	assert.NotEmpty(t, meta["request_id"])
}

func TestResponseMetaWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	SetCacheHit(c, false)

	meta := Meta(c)
	assert.Equal(t, false, meta["cache_hit"])
	assert.NotContains(t, meta, "processing_time_ms")
}
