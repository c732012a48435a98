package models

import "time"

// TrainingRating is a requester's review of a completed training.
type TrainingRating struct {
	ID                  string    `db:"id" json:"id"`
	TrainingRequestID   string    `db:"training_request_id" json:"training_request_id"`
	TrainerID           string    `db:"trainer_id" json:"trainer_id"`
	TraineeID           *string   `db:"trainee_id" json:"trainee_id,omitempty"`
	OverallRating       int       `db:"overall_rating" json:"overall_rating"`
	ContentQuality      int       `db:"content_quality" json:"content_quality"`
	DeliveryQuality     int       `db:"delivery_quality" json:"delivery_quality"`
	InteractionQuality  int       `db:"interaction_quality" json:"interaction_quality"`
	OrganizationQuality int       `db:"organization_quality" json:"organization_quality"`
	ReviewText          *string   `db:"review_text" json:"review_text,omitempty"`
	IsAnonymous         bool      `db:"is_anonymous" json:"is_anonymous"`
	IsApproved          bool      `db:"is_approved" json:"is_approved"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// RatingsSummary aggregates a trainer's approved ratings.
type RatingsSummary struct {
	TrainerID          string      `json:"trainer_id"`
	TotalRatings       int         `json:"total_ratings"`
	AverageRating      float64     `json:"average_rating"`
	RatingDistribution map[int]int `json:"rating_distribution"`
}

// RatingBucket is one row of the overall-rating histogram.
type RatingBucket struct {
	Rating int `db:"overall_rating"`
	Count  int `db:"count"`
}
