package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

// AnalyticsRepository describes the persistence layer required by AnalyticsService.
type AnalyticsRepository interface {
	CountCreated(ctx context.Context, period models.AnalyticsPeriod, statuses ...models.TrainingStatus) (int, error)
	ProcessingTime(ctx context.Context, sample int) (models.ProcessingTime, error)
	ProvinceCounts(ctx context.Context, limit int) ([]models.AnalyticsBucket, error)
	StatusCounts(ctx context.Context) ([]models.AnalyticsBucket, error)
	RatingAverage(ctx context.Context, period models.AnalyticsPeriod) (models.RatingAggregate, error)
	CompletionTiming(ctx context.Context, period models.AnalyticsPeriod, graceDays int) (models.CompletionTiming, error)
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// Fallbacks reported while a month has no ratings or completions to measure.
const (
	defaultTrainingQuality = 90
	defaultTimeCompliance  = 85
)

// respondedStatuses are the states a request reaches once any approver has acted on it favourably.
var respondedStatuses = []models.TrainingStatus{
	models.StatusCCApproved,
	models.StatusSVApproved,
	models.StatusPMApproved,
	models.StatusTrainerAssigned,
	models.StatusCompleted,
}

// AnalyticsConfig tunes the overview aggregates.
type AnalyticsConfig struct {
	CacheTTL         time.Duration
	ProvinceLimit    int
	ProcessingSample int
	GraceDays        int
}

// AnalyticsService composes the organisation-wide overview with cache integration.
type AnalyticsService struct {
	repo    AnalyticsRepository
	cache   valueCache
	metrics queryObserver
	logger  *zap.Logger
	cfg     AnalyticsConfig
	now     func() time.Time
}

// NewAnalyticsService constructs an analytics service.
func NewAnalyticsService(repo AnalyticsRepository, cache valueCache, metrics queryObserver, logger *zap.Logger, cfg AnalyticsConfig) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.ProvinceLimit <= 0 {
		cfg.ProvinceLimit = 5
	}
	if cfg.ProcessingSample <= 0 {
		cfg.ProcessingSample = 100
	}
	if cfg.GraceDays <= 0 {
		cfg.GraceDays = 7
	}
	return &AnalyticsService{repo: repo, cache: cache, metrics: metrics, logger: logger, cfg: cfg, now: time.Now}
}

// Overview returns the current month's report. The boolean indicates whether data originated from cache.
func (s *AnalyticsService) Overview(ctx context.Context) (*models.AnalyticsOverview, bool, error) {
	now := s.now().UTC()
	cacheKey := cacheKeyAnalytics + "overview:" + now.Format("2006-01")
	if s.cache != nil {
		var cached models.AnalyticsOverview
		hit, err := s.cache.Get(ctx, cacheKey, &cached)
		if err != nil {
			s.logger.Warn("analytics cache read failed", zap.String("key", cacheKey), zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	overview, err := s.compose(ctx, now)
	if err != nil {
		return nil, false, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("analytics_overview", time.Since(start))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, overview, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("analytics cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return overview, false, nil
}

func (s *AnalyticsService) compose(ctx context.Context, now time.Time) (*models.AnalyticsOverview, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	current := models.AnalyticsPeriod{From: monthStart, To: monthStart.AddDate(0, 1, 0)}
	previous := models.AnalyticsPeriod{From: monthStart.AddDate(0, -1, 0), To: monthStart}

	var (
		totalCur, totalPrev         int
		completedCur, completedPrev int
		respondedCur                int
		ratingCur, ratingPrev       models.RatingAggregate
		timing                      models.CompletionTiming
	)
	overview := &models.AnalyticsOverview{GeneratedAt: now}

	g, gctx := errgroup.WithContext(ctx)
	count := func(dest *int, period models.AnalyticsPeriod, statuses ...models.TrainingStatus) {
		g.Go(func() error {
			n, err := s.repo.CountCreated(gctx, period, statuses...)
			if err != nil {
				return err
			}
			*dest = n
			return nil
		})
	}
	count(&totalCur, current)
	count(&totalPrev, previous)
	count(&completedCur, current, models.StatusCompleted)
	count(&completedPrev, previous, models.StatusCompleted)
	count(&respondedCur, current, respondedStatuses...)

	rating := func(dest *models.RatingAggregate, period models.AnalyticsPeriod) {
		g.Go(func() error {
			agg, err := s.repo.RatingAverage(gctx, period)
			if err != nil {
				return err
			}
			*dest = agg
			return nil
		})
	}
	rating(&ratingCur, current)
	rating(&ratingPrev, previous)

	g.Go(func() error {
		var err error
		timing, err = s.repo.CompletionTiming(gctx, current, s.cfg.GraceDays)
		return err
	})
	g.Go(func() error {
		var err error
		overview.Processing, err = s.repo.ProcessingTime(gctx, s.cfg.ProcessingSample)
		return err
	})
	g.Go(func() error {
		var err error
		overview.TopProvinces, err = s.repo.ProvinceCounts(gctx, s.cfg.ProvinceLimit)
		return err
	})
	g.Go(func() error {
		var err error
		overview.StatusBreakdown, err = s.repo.StatusCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute analytics")
	}

	overview.TotalRequests = monthOverMonth(float64(totalCur), float64(totalPrev))
	overview.CompletedRequests = monthOverMonth(float64(completedCur), float64(completedPrev))
	overview.Satisfaction = monthOverMonth(roundTenth(ratingCur.Average), roundTenth(ratingPrev.Average))
	overview.Performance = models.PerformanceIndicators{
		ResponseRate:    percentOf(respondedCur, totalCur, 0),
		TrainingQuality: defaultTrainingQuality,
		TimeCompliance:  percentOf(timing.OnTime, timing.Completed, defaultTimeCompliance),
	}
	if ratingCur.Count > 0 {
		overview.Performance.TrainingQuality = int(math.Round(ratingCur.Average * 20))
	}
	if overview.TopProvinces == nil {
		overview.TopProvinces = []models.AnalyticsBucket{}
	}
	if overview.StatusBreakdown == nil {
		overview.StatusBreakdown = []models.AnalyticsBucket{}
	}
	return overview, nil
}

func monthOverMonth(current, previous float64) models.MonthOverMonth {
	out := models.MonthOverMonth{Current: current, Previous: previous}
	if previous > 0 {
		out.ChangePercent = int(math.Round((current - previous) / previous * 100))
	}
	return out
}

func percentOf(part, whole, fallback int) int {
	if whole <= 0 {
		return fallback
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
