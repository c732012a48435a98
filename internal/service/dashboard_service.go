package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

type requestCounter interface {
	Count(ctx context.Context, filter models.TrainingRequestFilter) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes per-user training request statistics.
type DashboardService struct {
	requests requestCounter
	cache    valueCache
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Requests requestCounter
	Cache    valueCache
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		requests: params.Requests,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Stats returns the requester's counters and whether they were served from cache.
func (s *DashboardService) Stats(ctx context.Context, userID string) (*models.DashboardStats, bool, error) {
	if userID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "user id is required")
	}
	cacheKey := cacheKeyDashboard + userID
	if s.cache != nil {
		var cached models.DashboardStats
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err == nil && hit {
			return &cached, true, nil
		}
	}

	stats, err := s.compose(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return stats, false, nil
}

func (s *DashboardService) compose(ctx context.Context, userID string) (*models.DashboardStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	stats := &models.DashboardStats{UserID: userID, GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dest *int, filter models.TrainingRequestFilter) {
		filter.RequesterID = userID
		g.Go(func() error {
			n, err := s.requests.Count(gctx, filter)
			if err != nil {
				return err
			}
			*dest = n
			return nil
		})
	}
	count(&stats.Total, models.TrainingRequestFilter{})
	count(&stats.Pending, models.TrainingRequestFilter{
		NotStatuses: []models.TrainingStatus{models.StatusCompleted, models.StatusRejected},
	})
	count(&stats.Completed, models.TrainingRequestFilter{
		Statuses: []models.TrainingStatus{models.StatusCompleted},
	})
	count(&stats.Upcoming, models.TrainingRequestFilter{
		Statuses: []models.TrainingStatus{models.StatusPMApproved, models.StatusTrainerAssigned},
		From:     &today,
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute dashboard stats")
	}
	return stats, nil
}
