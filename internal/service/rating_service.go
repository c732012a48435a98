package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/lifemakers/pirates-api/internal/dto"
	"github.com/lifemakers/pirates-api/internal/models"
	"github.com/lifemakers/pirates-api/internal/workflow"
	appErrors "github.com/lifemakers/pirates-api/pkg/errors"
)

type ratingStore interface {
	Create(ctx context.Context, rating *models.TrainingRating) error
	ExistsForRequest(ctx context.Context, requestID, traineeID string) (bool, error)
	ListApprovedByTrainer(ctx context.Context, trainerID string, limit int) ([]models.TrainingRating, error)
	Distribution(ctx context.Context, trainerID string) ([]models.RatingBucket, error)
	Approve(ctx context.Context, id string, at time.Time) error
}

type requestLoader interface {
	GetByID(ctx context.Context, id string) (*models.TrainingRequest, error)
}

// RatingService manages reviews of completed trainings.
type RatingService struct {
	ratings   ratingStore
	requests  requestLoader
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRatingService constructs a RatingService.
func NewRatingService(ratings ratingStore, requests requestLoader, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *RatingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RatingService{
		ratings:   ratings,
		requests:  requests,
		audit:     audit,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create records the requester's rating of a completed training. Ratings start unapproved.
func (s *RatingService) Create(ctx context.Context, requestID string, actor workflow.Actor, req dto.CreateRatingRequest) (*models.TrainingRating, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rating payload")
	}
	training, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "training request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load training request")
	}
	if training.RequesterID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may rate this training")
	}
	if training.Status != models.StatusCompleted || training.TrainerID() == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only completed trainings can be rated")
	}

	exists, err := s.ratings.ExistsForRequest(ctx, requestID, actor.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing rating")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "training already rated")
	}

	traineeID := actor.UserID
	rating := &models.TrainingRating{
		TrainingRequestID:   training.ID,
		TrainerID:           training.TrainerID(),
		TraineeID:           &traineeID,
		OverallRating:       req.OverallRating,
		ContentQuality:      req.ContentQuality,
		DeliveryQuality:     req.DeliveryQuality,
		InteractionQuality:  req.InteractionQuality,
		OrganizationQuality: req.OrganizationQuality,
		ReviewText:          optionalString(req.ReviewText),
		IsAnonymous:         req.IsAnonymous,
	}
	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create rating")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &traineeID,
		Action:     models.AuditActionRatingCreate,
		Resource:   models.AuditResourceTrainingRating,
		ResourceID: &rating.ID,
		NewValues:  marshalAuditValues(map[string]interface{}{"training_request_id": training.ID, "overall_rating": rating.OverallRating}),
	})
	return rating, nil
}

// Approve publishes a pending rating; administrators only.
func (s *RatingService) Approve(ctx context.Context, id string, actor workflow.Actor) error {
	if !actor.Role.IsAdministrative() {
		return appErrors.Clone(appErrors.ErrForbidden, "not permitted for your role")
	}
	if err := s.ratings.Approve(ctx, id, s.now()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "pending rating not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve rating")
	}
	actorID := actor.UserID
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionRatingApprove,
		Resource:   models.AuditResourceTrainingRating,
		ResourceID: &id,
	})
	return nil
}

// ListForTrainer returns approved ratings; anonymous ratings hide the trainee.
func (s *RatingService) ListForTrainer(ctx context.Context, trainerID string, limit int) ([]models.TrainingRating, error) {
	ratings, err := s.ratings.ListApprovedByTrainer(ctx, trainerID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	for i := range ratings {
		if ratings[i].IsAnonymous {
			ratings[i].TraineeID = nil
		}
	}
	return ratings, nil
}

// Summary aggregates a trainer's approved ratings.
func (s *RatingService) Summary(ctx context.Context, trainerID string) (*models.RatingsSummary, error) {
	buckets, err := s.ratings.Distribution(ctx, trainerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarise ratings")
	}
	summary := &models.RatingsSummary{
		TrainerID:          trainerID,
		RatingDistribution: map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}
	sum := 0
	for _, bucket := range buckets {
		if bucket.Rating < 1 || bucket.Rating > 5 {
			continue
		}
		summary.RatingDistribution[bucket.Rating] = bucket.Count
		summary.TotalRatings += bucket.Count
		sum += bucket.Rating * bucket.Count
	}
	if summary.TotalRatings > 0 {
		summary.AverageRating = math.Round(float64(sum)/float64(summary.TotalRatings)*100) / 100
	}
	return summary, nil
}

func (s *RatingService) emitAudit(ctx context.Context, entry *models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit log", zap.String("action", entry.Action), zap.Error(err))
	}
}
