package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/middleware"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// actorFromContext returns the caller identity used for workflow checks.
func actorFromContext(c *gin.Context) (workflow.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID == "" {
		return workflow.Actor{}, false
	}
	return workflow.Actor{UserID: claims.UserID, Role: claims.Role}, true
}

// bindJSON decodes the request body into dst and writes a validation error on failure.
// With optional set, an empty body leaves dst untouched.
func bindJSON(c *gin.Context, dst interface{}, optional bool, message string) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
	return false
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return value
}

func trainingRequestQueryFromContext(c *gin.Context) dto.TrainingRequestQuery {
	query := dto.TrainingRequestQuery{
		Path:      models.ApprovalPath(strings.TrimSpace(c.Query("path"))),
		Province:  strings.TrimSpace(c.Query("province")),
		Search:    strings.TrimSpace(c.Query("search")),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 20),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
	}
	for _, raw := range c.QueryArray("status") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Status = append(query.Status, models.TrainingStatus(part))
			}
		}
	}
	return query
}
