package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/service"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/response"
)

type requestExporter interface {
	Export(ctx context.Context, actor workflow.Actor, query dto.ExportQuery) (*service.ExportResult, error)
}

// ExportHandler streams training request exports.
type ExportHandler struct {
	service requestExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc requestExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// TrainingRequests godoc
// @Summary Export training requests
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx"
// @Param status query string false "Comma separated statuses"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /training-requests/export [get]
func (h *ExportHandler) TrainingRequests(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	query := dto.ExportQuery{
		Format:               strings.ToLower(strings.TrimSpace(c.Query("format"))),
		TrainingRequestQuery: trainingRequestQueryFromContext(c),
	}
	result, err := h.service.Export(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Export-Rows", strconv.Itoa(result.Rows))
	response.Attachment(c, result.Filename, result.ContentType, result.Body)
}
