package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lifemakers/pirates-api/internal/models"
)

const ratingColumns = `id, training_request_id, trainer_id, trainee_id, overall_rating, content_quality, delivery_quality,
       interaction_quality, organization_quality, review_text, is_anonymous, is_approved, created_at, updated_at`

// RatingRepository persists training ratings.
type RatingRepository struct {
	db *sqlx.DB
}

// NewRatingRepository constructs the repository.
func NewRatingRepository(db *sqlx.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create inserts an unapproved rating.
func (r *RatingRepository) Create(ctx context.Context, rating *models.TrainingRating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	rating.CreatedAt = now
	rating.UpdatedAt = now
	const query = `INSERT INTO training_ratings
	(id, training_request_id, trainer_id, trainee_id, overall_rating, content_quality, delivery_quality, interaction_quality,
	 organization_quality, review_text, is_anonymous, is_approved, created_at, updated_at)
	VALUES (:id, :training_request_id, :trainer_id, :trainee_id, :overall_rating, :content_quality, :delivery_quality, :interaction_quality,
	 :organization_quality, :review_text, :is_anonymous, :is_approved, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("create training rating: %w", err)
	}
	return nil
}

// GetByID fetches a rating by identifier.
func (r *RatingRepository) GetByID(ctx context.Context, id string) (*models.TrainingRating, error) {
	query := fmt.Sprintf("SELECT %s FROM training_ratings WHERE id = $1", ratingColumns)
	var rating models.TrainingRating
	if err := r.db.GetContext(ctx, &rating, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get training rating: %w", err)
	}
	return &rating, nil
}

// ExistsForRequest reports whether the trainee already rated the request.
func (r *RatingRepository) ExistsForRequest(ctx context.Context, requestID, traineeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM training_ratings WHERE training_request_id = $1 AND trainee_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, requestID, traineeID); err != nil {
		return false, fmt.Errorf("check training rating: %w", err)
	}
	return exists, nil
}

// ListApprovedByTrainer returns a trainer's approved ratings, newest first.
func (r *RatingRepository) ListApprovedByTrainer(ctx context.Context, trainerID string, limit int) ([]models.TrainingRating, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := fmt.Sprintf("SELECT %s FROM training_ratings WHERE trainer_id = $1 AND is_approved = TRUE ORDER BY created_at DESC LIMIT %d", ratingColumns, limit)
	var ratings []models.TrainingRating
	if err := r.db.SelectContext(ctx, &ratings, query, trainerID); err != nil {
		return nil, fmt.Errorf("list trainer ratings: %w", err)
	}
	return ratings, nil
}

// Distribution groups a trainer's approved ratings by overall score.
func (r *RatingRepository) Distribution(ctx context.Context, trainerID string) ([]models.RatingBucket, error) {
	const query = `SELECT overall_rating, COUNT(*) AS count FROM training_ratings
	WHERE trainer_id = $1 AND is_approved = TRUE GROUP BY overall_rating ORDER BY overall_rating`
	var buckets []models.RatingBucket
	if err := r.db.SelectContext(ctx, &buckets, query, trainerID); err != nil {
		return nil, fmt.Errorf("rating distribution: %w", err)
	}
	return buckets, nil
}

// Approve publishes a pending rating. It returns sql.ErrNoRows when the rating is missing or already approved.
func (r *RatingRepository) Approve(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE training_ratings SET is_approved = TRUE, updated_at = $2 WHERE id = $1 AND is_approved = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("approve training rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rating update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
