package models

import "time"

// AnalyticsPeriod bounds an aggregate to [From, To).
type AnalyticsPeriod struct {
	From time.Time
	To   time.Time
}

// MonthOverMonth compares a current-month figure with the previous month.
type MonthOverMonth struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	ChangePercent int     `json:"change_percent"`
}

// AnalyticsBucket is one GROUP BY row.
type AnalyticsBucket struct {
	Label string `db:"label" json:"label"`
	Count int    `db:"count" json:"count"`
}

// RatingAggregate averages overall ratings within a period.
type RatingAggregate struct {
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}

// CompletionTiming counts completed requests and those finished inside the grace window.
type CompletionTiming struct {
	Completed int `db:"completed"`
	OnTime    int `db:"on_time"`
}

// ProcessingTime averages whole days between creation and completion.
type ProcessingTime struct {
	AverageDays float64 `db:"average_days" json:"average_days"`
	Sample      int     `db:"sample" json:"sample"`
}

// PerformanceIndicators are percentages over requests created this month.
type PerformanceIndicators struct {
	ResponseRate    int `json:"response_rate"`
	TrainingQuality int `json:"training_quality"`
	TimeCompliance  int `json:"time_compliance"`
}

// AnalyticsOverview is the organisation-wide training request report.
type AnalyticsOverview struct {
	TotalRequests     MonthOverMonth        `json:"total_requests"`
	CompletedRequests MonthOverMonth        `json:"completed_requests"`
	Satisfaction      MonthOverMonth        `json:"satisfaction"`
	Processing        ProcessingTime        `json:"processing_time"`
	TopProvinces      []AnalyticsBucket     `json:"top_provinces"`
	StatusBreakdown   []AnalyticsBucket     `json:"status_breakdown"`
	Performance       PerformanceIndicators `json:"performance"`
	GeneratedAt       time.Time             `json:"generated_at"`
}
