package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/response"
)

// RequireRoles allows the request through only for the listed roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireApprover allows the approver tiers and administrators.
func RequireApprover() gin.HandlerFunc {
	var roles []models.UserRole
	for _, role := range models.AllRoles() {
		if role.IsApprover() {
			roles = append(roles, role)
		}
	}
	return RequireRoles(roles...)
}

// FeatureGate hides a route group when its feature flag is off.
func FeatureGate(enabled bool, feature string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			response.Error(c, appErrors.Clone(appErrors.ErrFeatureDisabled, feature+" is disabled"))
			return
		}
		c.Next()
	}
}
