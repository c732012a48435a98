package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

const (
	defaultUpcomingLimit = 10
	maxCalendarSpan      = 366 * 24 * time.Hour
	calendarEventLimit   = 500
)

type trainingRequestReader interface {
	GetByID(ctx context.Context, id string) (*models.TrainingRequest, error)
	List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequest, int, error)
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.TrainingRequest, error)
	ListBetween(ctx context.Context, from, to time.Time, limit int) ([]models.TrainingRequest, error)
}

// TrainingRequestService serves the read side of training requests.
type TrainingRequestService struct {
	repo   trainingRequestReader
	logger *zap.Logger
	now    func() time.Time
}

// NewTrainingRequestService constructs the query service.
func NewTrainingRequestService(repo trainingRequestReader, logger *zap.Logger) *TrainingRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrainingRequestService{repo: repo, logger: logger, now: time.Now}
}

// ListMine returns requests submitted by the caller.
func (s *TrainingRequestService) ListMine(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error) {
	filter := filterFromQuery(query)
	filter.RequesterID = actor.UserID
	return s.list(ctx, filter)
}

// ListAll returns every request; restricted to approver roles.
func (s *TrainingRequestService) ListAll(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error) {
	if !actor.Role.IsApprover() {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not permitted for your role")
	}
	return s.list(ctx, filterFromQuery(query))
}

// ListAssigned returns the requests assigned to the calling trainer.
func (s *TrainingRequestService) ListAssigned(ctx context.Context, actor workflow.Actor, query dto.TrainingRequestQuery) ([]models.TrainingRequest, *models.Pagination, error) {
	if actor.Role != models.RoleTrainer {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "not permitted for your role")
	}
	filter := filterFromQuery(query)
	filter.TrainerID = actor.UserID
	return s.list(ctx, filter)
}

// Get returns one request if the caller may see it. Trainers also see requests open for self-assignment.
func (s *TrainingRequestService) Get(ctx context.Context, actor workflow.Actor, id string) (*models.TrainingRequest, error) {
	req, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if !canView(actor, req) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not permitted for your role")
	}
	return req, nil
}

// Upcoming returns approved or assigned trainings from today onwards, soonest first.
func (s *TrainingRequestService) Upcoming(ctx context.Context, limit int) ([]models.TrainingRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultUpcomingLimit
	}
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	items, err := s.repo.ListUpcoming(ctx, today, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list upcoming trainings")
	}
	return items, nil
}

// Calendar groups scheduled trainings between from and to (inclusive) by date.
func (s *TrainingRequestService) Calendar(ctx context.Context, query dto.CalendarQuery) ([]models.CalendarDay, error) {
	from, err := time.Parse(requestedDateLayout, query.From)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "from must use YYYY-MM-DD")
	}
	to, err := time.Parse(requestedDateLayout, query.To)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "to must use YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	if to.Sub(from) > maxCalendarSpan {
		return nil, appErrors.Clone(appErrors.ErrValidation, "calendar range must not exceed one year")
	}

	items, err := s.repo.ListBetween(ctx, from, to, calendarEventLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load calendar")
	}
	if len(items) == calendarEventLimit {
		s.logger.Warn("calendar truncated", zap.String("from", query.From), zap.String("to", query.To))
	}

	days := make([]models.CalendarDay, 0)
	index := make(map[string]int)
	for _, item := range items {
		date := item.RequestedDate.Format(requestedDateLayout)
		pos, ok := index[date]
		if !ok {
			pos = len(days)
			index[date] = pos
			days = append(days, models.CalendarDay{Date: date})
		}
		days[pos].Events = append(days[pos].Events, models.CalendarEvent{
			ID:             item.ID,
			Title:          item.Title,
			Date:           date,
			Status:         item.Status,
			Specialization: item.Specialization,
			Province:       item.Province,
			DurationHours:  item.DurationHours,
			TrainerID:      item.AssignedTrainerID,
		})
	}
	return days, nil
}

func (s *TrainingRequestService) list(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequest, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list training requests")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

func filterFromQuery(query dto.TrainingRequestQuery) models.TrainingRequestFilter {
	return models.TrainingRequestFilter{
		Statuses:  query.Status,
		Path:      query.Path,
		Province:  query.Province,
		Search:    query.Search,
		Page:      query.Page,
		PageSize:  query.PageSize,
		SortBy:    query.SortBy,
		SortOrder: query.SortOrder,
	}
}

func canView(actor workflow.Actor, req *models.TrainingRequest) bool {
	switch {
	case actor.Role.IsApprover():
		return true
	case actor.UserID != "" && actor.UserID == req.RequesterID:
		return true
	case actor.Role == models.RoleTrainer:
		return req.Status == models.StatusPMApproved || req.TrainerID() == actor.UserID
	default:
		return false
	}
}
