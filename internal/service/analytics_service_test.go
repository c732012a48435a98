package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

var analyticsNow = time.Date(2026, 5, 14, 9, 30, 0, 0, time.UTC)

type mockAnalyticsRepo struct {
	mu        sync.Mutex
	calls     int
	periods   []models.AnalyticsPeriod
	ratings   map[time.Month]models.RatingAggregate
	timing    models.CompletionTiming
	graceDays int
	statusErr error
}

func newMockAnalyticsRepo() *mockAnalyticsRepo {
	return &mockAnalyticsRepo{
		ratings: map[time.Month]models.RatingAggregate{
			time.May:   {Average: 4.46, Count: 5},
			time.April: {Average: 4.0, Count: 3},
		},
		timing: models.CompletionTiming{Completed: 4, OnTime: 3},
	}
}

func (m *mockAnalyticsRepo) record(period *models.AnalyticsPeriod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if period != nil {
		m.periods = append(m.periods, *period)
	}
}

func (m *mockAnalyticsRepo) CountCreated(ctx context.Context, period models.AnalyticsPeriod, statuses ...models.TrainingStatus) (int, error) {
	m.record(&period)
	current := period.From.Month() == time.May
	switch {
	case len(statuses) == 0 && current:
		return 20, nil
	case len(statuses) == 0:
		return 16, nil
	case len(statuses) == 1 && current:
		return 6, nil
	case len(statuses) == 1:
		return 0, nil
	default:
		return 15, nil
	}
}

func (m *mockAnalyticsRepo) ProcessingTime(ctx context.Context, sample int) (models.ProcessingTime, error) {
	m.record(nil)
	return models.ProcessingTime{AverageDays: 3.5, Sample: sample}, nil
}

func (m *mockAnalyticsRepo) ProvinceCounts(ctx context.Context, limit int) ([]models.AnalyticsBucket, error) {
	m.record(nil)
	return []models.AnalyticsBucket{{Label: "Cairo", Count: 11}, {Label: "Giza", Count: 4}}, nil
}

func (m *mockAnalyticsRepo) StatusCounts(ctx context.Context) ([]models.AnalyticsBucket, error) {
	m.record(nil)
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return []models.AnalyticsBucket{{Label: "completed", Count: 6}}, nil
}

func (m *mockAnalyticsRepo) RatingAverage(ctx context.Context, period models.AnalyticsPeriod) (models.RatingAggregate, error) {
	m.record(&period)
	return m.ratings[period.From.Month()], nil
}

func (m *mockAnalyticsRepo) CompletionTiming(ctx context.Context, period models.AnalyticsPeriod, graceDays int) (models.CompletionTiming, error) {
	m.record(&period)
	m.mu.Lock()
	m.graceDays = graceDays
	m.mu.Unlock()
	return m.timing, nil
}

func newAnalyticsFixture(repo *mockAnalyticsRepo, cacheRepo CacheRepository) *AnalyticsService {
	cache := NewCacheService(cacheRepo, nil, nil, WithCacheNamespace("pirates:"))
	svc := NewAnalyticsService(repo, cache, NewMetricsService(), nil, AnalyticsConfig{})
	svc.now = func() time.Time { return analyticsNow }
	return svc
}

func TestAnalyticsOverviewComposesMonthOverMonth(t *testing.T) {
	repo := newMockAnalyticsRepo()
	svc := newAnalyticsFixture(repo, newCacheRepoStub())

	overview, hit, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	assert.Equal(t, models.MonthOverMonth{Current: 20, Previous: 16, ChangePercent: 25}, overview.TotalRequests)
	assert.Equal(t, models.MonthOverMonth{Current: 6, Previous: 0, ChangePercent: 0}, overview.CompletedRequests)
	assert.Equal(t, models.MonthOverMonth{Current: 4.5, Previous: 4, ChangePercent: 13}, overview.Satisfaction)
	assert.Equal(t, models.ProcessingTime{AverageDays: 3.5, Sample: 100}, overview.Processing)
	assert.Equal(t, "Cairo", overview.TopProvinces[0].Label)
	assert.Equal(t, models.PerformanceIndicators{ResponseRate: 75, TrainingQuality: 89, TimeCompliance: 75}, overview.Performance)
	assert.Equal(t, 7, repo.graceDays)
	assert.Equal(t, analyticsNow, overview.GeneratedAt)

	for _, period := range repo.periods {
		switch period.From {
		case time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC):
			assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), period.To)
		case time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC):
			assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), period.To)
		default:
			t.Fatalf("unexpected period %v", period)
		}
	}
}

func TestAnalyticsOverviewUsesCache(t *testing.T) {
	repo := newMockAnalyticsRepo()
	cacheRepo := newCacheRepoStub()
	svc := newAnalyticsFixture(repo, cacheRepo)
	ctx := context.Background()

	_, hit, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	calls := repo.calls
	assert.Equal(t, 11, calls)
	assert.Contains(t, cacheRepo.values, "pirates:analytics:overview:2026-05")
	assert.Equal(t, 5*time.Minute, cacheRepo.ttls["pirates:analytics:overview:2026-05"])

	cached, hit, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 20.0, cached.TotalRequests.Current)
	assert.Equal(t, calls, repo.calls)
}

func TestAnalyticsOverviewFallsBackWhenCacheReadFails(t *testing.T) {
	repo := newMockAnalyticsRepo()
	cacheRepo := newCacheRepoStub()
	cacheRepo.getErr = errors.New("redis unavailable")
	svc := newAnalyticsFixture(repo, cacheRepo)

	overview, hit, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 20.0, overview.TotalRequests.Current)
}

func TestAnalyticsOverviewDefaultsWithoutData(t *testing.T) {
	repo := newMockAnalyticsRepo()
	repo.ratings = map[time.Month]models.RatingAggregate{}
	repo.timing = models.CompletionTiming{}
	svc := NewAnalyticsService(repo, nil, nil, nil, AnalyticsConfig{})
	svc.now = func() time.Time { return analyticsNow }

	overview, _, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 90, overview.Performance.TrainingQuality)
	assert.Equal(t, 85, overview.Performance.TimeCompliance)
	assert.Zero(t, overview.Satisfaction.ChangePercent)
}

func TestAnalyticsOverviewWrapsRepositoryErrors(t *testing.T) {
	repo := newMockAnalyticsRepo()
	repo.statusErr = errors.New("db down")
	cacheRepo := newCacheRepoStub()
	svc := newAnalyticsFixture(repo, cacheRepo)

	_, _, err := svc.Overview(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, errCode(err))
	assert.Empty(t, cacheRepo.values)
}
