package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/internal/middleware"
	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/response"
)

type analyticsService interface {
	Overview(ctx context.Context) (*models.AnalyticsOverview, bool, error)
}

// AnalyticsHandler exposes the organisation-wide training request report.
type AnalyticsHandler struct {
	service analyticsService
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(service analyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service}
}

// Overview godoc
// @Summary Training request analytics for the current month
// @Tags Analytics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /analytics [get]
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	overview, cacheHit, err := h.service.Overview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, overview, nil, middleware.Meta(c))
}
