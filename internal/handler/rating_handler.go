package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/response"
)

type ratingService interface {
	Create(ctx context.Context, requestID string, actor workflow.Actor, req dto.CreateRatingRequest) (*models.TrainingRating, error)
	Approve(ctx context.Context, id string, actor workflow.Actor) error
	ListForTrainer(ctx context.Context, trainerID string, limit int) ([]models.TrainingRating, error)
	Summary(ctx context.Context, trainerID string) (*models.RatingsSummary, error)
}

// RatingHandler exposes trainer ratings.
type RatingHandler struct {
	service ratingService
}

// NewRatingHandler constructs the handler.
func NewRatingHandler(svc ratingService) *RatingHandler {
	return &RatingHandler{service: svc}
}

// Create godoc
// @Summary Rate a completed training
// @Tags Ratings
// @Accept json
// @Produce json
// @Param id path string true "Training request ID"
// @Param payload body dto.CreateRatingRequest true "Rating"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /training-requests/{id}/ratings [post]
func (h *RatingHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRatingRequest
	if !bindJSON(c, &req, false, "invalid rating payload") {
		return
	}
	rating, err := h.service.Create(c.Request.Context(), c.Param("id"), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rating)
}

// ListForTrainer godoc
// @Summary Approved ratings of a trainer
// @Tags Ratings
// @Produce json
// @Param id path string true "Trainer ID"
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Router /trainers/{id}/ratings [get]
func (h *RatingHandler) ListForTrainer(c *gin.Context) {
	items, err := h.service.ListForTrainer(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Summary godoc
// @Summary Rating summary of a trainer
// @Tags Ratings
// @Produce json
// @Param id path string true "Trainer ID"
// @Success 200 {object} response.Envelope
// @Router /trainers/{id}/ratings/summary [get]
func (h *RatingHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Approve godoc
// @Summary Approve a rating for publication
// @Tags Ratings
// @Param id path string true "Rating ID"
// @Success 204 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /ratings/{id}/approve [post]
func (h *RatingHandler) Approve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Approve(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
