package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/response"
)

type workflowCommands interface {
	Submit(ctx context.Context, req dto.SubmitTrainingRequest, actor workflow.Actor) (*models.TrainingRequest, error)
	Advance(ctx context.Context, requestID string, actor workflow.Actor) (*models.TrainingRequest, error)
	Reject(ctx context.Context, requestID, reason string, actor workflow.Actor) (*models.TrainingRequest, error)
	AssignTrainer(ctx context.Context, requestID, trainerID string, actor workflow.Actor) (*models.TrainingRequest, error)
}

type trainingRequestQueries interface {
	ListMine(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error)
	ListAll(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error)
	ListAssigned(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error)
	Get(ctx context.Context, actor workflow.Actor, id string) (*models.TrainingRequest, error)
	Upcoming(ctx context.Context, limit int) ([]models.TrainingRequest, error)
	Calendar(ctx context.Context, query dto.CalendarQuery) ([]models.CalendarDay, error)
}

// TrainingRequestHandler exposes the training request workflow over HTTP.
type TrainingRequestHandler struct {
	commands workflowCommands
	queries  trainingRequestQueries
}

// NewTrainingRequestHandler constructs the handler.
func NewTrainingRequestHandler(commands workflowCommands, queries trainingRequestQueries) *TrainingRequestHandler {
	return &TrainingRequestHandler{commands: commands, queries: queries}
}

// Submit godoc
// @Summary Submit training request
// @Description Creates a request on the approval path of the caller's role
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitTrainingRequest true "Training request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /training-requests [post]
func (h *TrainingRequestHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitTrainingRequest
	if !bindJSON(c, &req, false, "invalid training request payload") {
		return
	}
	created, err := h.commands.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// ListMine godoc
// @Summary List my training requests
// @Tags TrainingRequests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /training-requests [get]
func (h *TrainingRequestHandler) ListMine(c *gin.Context) {
	h.list(c, h.queries.ListMine)
}

// ListAll godoc
// @Summary List all training requests
// @Description Restricted to approver roles
// @Tags TrainingRequests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param path query string false "Approval path"
// @Param province query string false "Province"
// @Param search query string false "Search term"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /training-requests/all [get]
func (h *TrainingRequestHandler) ListAll(c *gin.Context) {
	h.list(c, h.queries.ListAll)
}

// ListAssigned godoc
// @Summary List requests assigned to the calling trainer
// @Tags TrainingRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /training-requests/assigned [get]
func (h *TrainingRequestHandler) ListAssigned(c *gin.Context) {
	h.list(c, h.queries.ListAssigned)
}

type listFunc func(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error)

func (h *TrainingRequestHandler) list(c *gin.Context, fn listFunc) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, pagination, err := fn(c.Request.Context(), actor, trainingRequestQueryFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get training request
// @Tags TrainingRequests
// @Produce json
// @Param id path string true "Training request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /training-requests/{id} [get]
func (h *TrainingRequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.queries.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Advance godoc
// @Summary Approve to the next status
// @Description Moves the request one step along its approval path
// @Tags TrainingRequests
// @Produce json
// @Param id path string true "Training request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /training-requests/{id}/advance [post]
func (h *TrainingRequestHandler) Advance(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.commands.Advance(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Reject godoc
// @Summary Reject training request
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param id path string true "Training request ID"
// @Param payload body dto.RejectTrainingRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /training-requests/{id}/reject [post]
func (h *TrainingRequestHandler) Reject(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.RejectTrainingRequest
	if !bindJSON(c, &req, true, "invalid rejection payload") {
		return
	}
	updated, err := h.commands.Reject(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.Reason), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// AssignTrainer godoc
// @Summary Assign a trainer
// @Description Trainers may omit trainerId to assign themselves
// @Tags TrainingRequests
// @Accept json
// @Produce json
// @Param id path string true "Training request ID"
// @Param payload body dto.AssignTrainerRequest false "Trainer"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /training-requests/{id}/assign-trainer [post]
func (h *TrainingRequestHandler) AssignTrainer(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignTrainerRequest
	if !bindJSON(c, &req, true, "invalid assignment payload") {
		return
	}
	updated, err := h.commands.AssignTrainer(c.Request.Context(), c.Param("id"), strings.TrimSpace(req.TrainerID), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Upcoming godoc
// @Summary Upcoming trainings
// @Tags TrainingRequests
// @Produce json
// @Param limit query int false "Maximum items"
// @Success 200 {object} response.Envelope
// @Router /training-requests/upcoming [get]
func (h *TrainingRequestHandler) Upcoming(c *gin.Context) {
	items, err := h.queries.Upcoming(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Calendar godoc
// @Summary Training calendar
// @Tags TrainingRequests
// @Produce json
// @Param from query string true "Start date (YYYY-MM-DD)"
// @Param to query string true "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /training-requests/calendar [get]
func (h *TrainingRequestHandler) Calendar(c *gin.Context) {
	var query dto.CalendarQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid calendar query"))
		return
	}
	if query.From == "" || query.To == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from and to are required"))
		return
	}
	days, err := h.queries.Calendar(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
