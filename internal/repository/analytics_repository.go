package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/lifemakers/pirates-api/internal/models"
)

// AnalyticsRepository serves read-only aggregates over training requests and ratings.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CountCreated counts requests created within the period, optionally restricted to statuses.
func (r *AnalyticsRepository) CountCreated(ctx context.Context, period models.AnalyticsPeriod, statuses ...models.TrainingStatus) (int, error) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM training_requests WHERE created_at >= $1 AND created_at < $2")
	args := []interface{}{period.From, period.To}
	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}
		args = append(args, pq.Array(values))
		sb.WriteString(fmt.Sprintf(" AND status = ANY($%d)", len(args)))
	}

	var count int
	if err := r.db.GetContext(ctx, &count, sb.String(), args...); err != nil {
		return 0, fmt.Errorf("count training requests: %w", err)
	}
	return count, nil
}

// ProcessingTime averages whole days from creation to completion over the latest completed requests.
func (r *AnalyticsRepository) ProcessingTime(ctx context.Context, sample int) (models.ProcessingTime, error) {
	const query = `SELECT COALESCE(AVG(CEIL(EXTRACT(EPOCH FROM (updated_at - created_at)) / 86400)), 0) AS average_days,
       COUNT(*) AS sample
FROM (
    SELECT created_at, updated_at FROM training_requests
    WHERE status = 'completed'
    ORDER BY updated_at DESC
    LIMIT $1
) recent`
	var out models.ProcessingTime
	if err := r.db.GetContext(ctx, &out, query, sample); err != nil {
		return models.ProcessingTime{}, fmt.Errorf("average processing time: %w", err)
	}
	return out, nil
}

// ProvinceCounts groups requests by province, most frequent first.
func (r *AnalyticsRepository) ProvinceCounts(ctx context.Context, limit int) ([]models.AnalyticsBucket, error) {
	const query = `SELECT province AS label, COUNT(*) AS count
FROM training_requests
WHERE province <> ''
GROUP BY province
ORDER BY count DESC, province ASC
LIMIT $1`
	var buckets []models.AnalyticsBucket
	if err := r.db.SelectContext(ctx, &buckets, query, limit); err != nil {
		return nil, fmt.Errorf("province counts: %w", err)
	}
	return buckets, nil
}

// StatusCounts groups requests by status, most frequent first.
func (r *AnalyticsRepository) StatusCounts(ctx context.Context) ([]models.AnalyticsBucket, error) {
	const query = `SELECT status AS label, COUNT(*) AS count
FROM training_requests
GROUP BY status
ORDER BY count DESC, status ASC`
	var buckets []models.AnalyticsBucket
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	return buckets, nil
}

// RatingAverage averages overall ratings submitted within the period.
func (r *AnalyticsRepository) RatingAverage(ctx context.Context, period models.AnalyticsPeriod) (models.RatingAggregate, error) {
	const query = `SELECT COALESCE(AVG(overall_rating), 0) AS average, COUNT(*) AS count
FROM training_ratings
WHERE created_at >= $1 AND created_at < $2`
	var out models.RatingAggregate
	if err := r.db.GetContext(ctx, &out, query, period.From, period.To); err != nil {
		return models.RatingAggregate{}, fmt.Errorf("rating average: %w", err)
	}
	return out, nil
}

// CompletionTiming counts completed requests created within the period and those finished
// no later than graceDays after the requested date.
func (r *AnalyticsRepository) CompletionTiming(ctx context.Context, period models.AnalyticsPeriod, graceDays int) (models.CompletionTiming, error) {
	const query = `SELECT COUNT(*) AS completed,
       COUNT(*) FILTER (WHERE updated_at <= requested_date + make_interval(days => $3)) AS on_time
FROM training_requests
WHERE status = 'completed' AND created_at >= $1 AND created_at < $2`
	var out models.CompletionTiming
	if err := r.db.GetContext(ctx, &out, query, period.From, period.To, graceDays); err != nil {
		return models.CompletionTiming{}, fmt.Errorf("completion timing: %w", err)
	}
	return out, nil
}
