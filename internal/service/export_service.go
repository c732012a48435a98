package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
	"github.com/lifemakers/pirates-api/pkg/export"
)

const exportPageSize = 500

var exportHeaders = []string{
	"ID", "Title", "Status", "Approval Path", "Specialization", "Province", "Center",
	"Requested Date", "Duration (h)", "Participants", "Trainer", "Created At",
}

type requestLister interface {
	List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequest, int, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportResult is a rendered document ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportService renders training request lists into downloadable documents.
type ExportService struct {
	requests  requestLister
	renderers export.Registry
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(requests requestLister, renderers export.Registry, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderers == nil {
		renderers = export.NewRegistry()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &ExportService{
		requests:  requests,
		renderers: renderers,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Export renders the filtered request list; approver roles only.
func (s *ExportService) Export(ctx context.Context, actor workflow.Actor, query dto.ExportQuery) (*ExportResult, error) {
	if !actor.Role.IsApprover() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not permitted for your role")
	}
	format := export.Format(strings.ToLower(strings.TrimSpace(query.Format)))
	if format == "" {
		format = export.FormatCSV
	}
	renderer, err := s.renderers.Get(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unsupported export format")
	}

	items, err := s.collect(ctx, filterFromQuery(query.TrainingRequestQuery))
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Title:   "Training requests",
		Headers: exportHeaders,
		Rows:    make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, exportRow(item))
	}

	body, err := renderer.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	filename := fmt.Sprintf("training-requests-%s.%s", s.now().Format("20060102-150405"), renderer.Extension())
	s.logger.Info("training requests exported",
		zap.String("user_id", actor.UserID),
		zap.String("format", string(format)),
		zap.Int("rows", len(items)))
	return &ExportResult{Filename: filename, ContentType: renderer.ContentType(), Body: body, Rows: len(items)}, nil
}

func (s *ExportService) collect(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequest, error) {
	filter.PageSize = exportPageSize
	if filter.SortBy == "" {
		filter.SortBy = "requested_date"
		filter.SortOrder = "ASC"
	}
	var out []models.TrainingRequest
	for page := 1; len(out) < s.cfg.MaxRows; page++ {
		filter.Page = page
		items, total, err := s.requests.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training requests")
		}
		out = append(out, items...)
		if len(items) < exportPageSize || len(out) >= total {
			break
		}
	}
	if len(out) > s.cfg.MaxRows {
		s.logger.Warn("export truncated", zap.Int("max_rows", s.cfg.MaxRows))
		out = out[:s.cfg.MaxRows]
	}
	return out, nil
}

func exportRow(item models.TrainingRequest) map[string]string {
	center := ""
	if item.Center != nil {
		center = *item.Center
	}
	return map[string]string{
		"ID":             item.ID,
		"Title":          item.Title,
		"Status":         string(item.Status),
		"Approval Path":  string(item.ApprovalPath),
		"Specialization": item.Specialization,
		"Province":       item.Province,
		"Center":         center,
		"Requested Date": item.RequestedDate.Format(requestedDateLayout),
		"Duration (h)":   strconv.Itoa(item.DurationHours),
		"Participants":   strconv.Itoa(item.MaxParticipants),
		"Trainer":        item.TrainerID(),
		"Created At":     item.CreatedAt.Format(time.RFC3339),
	}
}
