package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lifemakers/pirates-api/internal/models"
)

const trainingRequestColumns = `id, title, description, requester_id, requester_role, approval_path, status, assigned_trainer_id,
       specialization, province, center, requested_date, duration_hours, max_participants, notes, rejection_reason,
       version, created_at, updated_at`

// TrainingRequestRepository persists training requests.
type TrainingRequestRepository struct {
	db *sqlx.DB
}

// NewTrainingRequestRepository constructs the repository.
func NewTrainingRequestRepository(db *sqlx.DB) *TrainingRequestRepository {
	return &TrainingRequestRepository{db: db}
}

// Create inserts a new request at version 1.
func (r *TrainingRequestRepository) Create(ctx context.Context, req *models.TrainingRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	req.Version = 1
	const query = `INSERT INTO training_requests
	(id, title, description, requester_id, requester_role, approval_path, status, assigned_trainer_id, specialization, province, center,
	 requested_date, duration_hours, max_participants, notes, rejection_reason, version, created_at, updated_at)
	VALUES (:id, :title, :description, :requester_id, :requester_role, :approval_path, :status, :assigned_trainer_id, :specialization, :province, :center,
	 :requested_date, :duration_hours, :max_participants, :notes, :rejection_reason, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create training request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *TrainingRequestRepository) GetByID(ctx context.Context, id string) (*models.TrainingRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM training_requests WHERE id = $1`, trainingRequestColumns)
	var req models.TrainingRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get training request: %w", err)
	}
	return &req, nil
}

// UpdateTransition writes status and its paired fields in one statement,
// guarded by the expected version. It returns sql.ErrNoRows when the row
// changed since it was read.
func (r *TrainingRequestRepository) UpdateTransition(ctx context.Context, params models.TransitionUpdate) error {
	const query = `UPDATE training_requests SET
	status = :status,
	assigned_trainer_id = COALESCE(:assigned_trainer_id, assigned_trainer_id),
	rejection_reason = COALESCE(:rejection_reason, rejection_reason),
	updated_at = :updated_at,
	version = version + 1
	WHERE id = :id AND version = :expected_version`
	result, err := r.db.NamedExecContext(ctx, query, params)
	if err != nil {
		return fmt.Errorf("update training request transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check training request update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns requests matching filter with the total count.
func (r *TrainingRequestRepository) List(ctx context.Context, filter models.TrainingRequestFilter) ([]models.TrainingRequest, int, error) {
	where, args := buildTrainingRequestWhere(filter)

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"requested_date": true,
		"status":         true,
		"province":       true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s FROM training_requests%s ORDER BY %s %s, id LIMIT %d OFFSET %d",
		trainingRequestColumns, where, sortBy, sortOrder, pageSize, offset)
	var requests []models.TrainingRequest
	if err := r.db.SelectContext(ctx, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list training requests: %w", err)
	}

	total, err := r.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Count returns the number of requests matching filter.
func (r *TrainingRequestRepository) Count(ctx context.Context, filter models.TrainingRequestFilter) (int, error) {
	where, args := buildTrainingRequestWhere(filter)
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM training_requests"+where, args...); err != nil {
		return 0, fmt.Errorf("count training requests: %w", err)
	}
	return total, nil
}

// ListUpcoming returns scheduled trainings on or after from, soonest first.
func (r *TrainingRequestRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]models.TrainingRequest, error) {
	requests, _, err := r.List(ctx, models.TrainingRequestFilter{
		Statuses:  []models.TrainingStatus{models.StatusPMApproved, models.StatusTrainerAssigned},
		From:      &from,
		PageSize:  limit,
		SortBy:    "requested_date",
		SortOrder: "ASC",
	})
	return requests, err
}

// ListBetween returns approved, assigned and completed trainings dated within [from, to].
func (r *TrainingRequestRepository) ListBetween(ctx context.Context, from, to time.Time, limit int) ([]models.TrainingRequest, error) {
	requests, _, err := r.List(ctx, models.TrainingRequestFilter{
		Statuses:  []models.TrainingStatus{models.StatusPMApproved, models.StatusTrainerAssigned, models.StatusCompleted},
		From:      &from,
		To:        &to,
		PageSize:  limit,
		SortBy:    "requested_date",
		SortOrder: "ASC",
	})
	return requests, err
}

func buildTrainingRequestWhere(filter models.TrainingRequestFilter) (string, []interface{}) {
	args := make([]interface{}, 0, 8)
	conditions := make([]string, 0, 8)

	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if filter.TrainerID != "" {
		args = append(args, filter.TrainerID)
		conditions = append(conditions, fmt.Sprintf("assigned_trainer_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status IN ("+placeholders(&args, filter.Statuses)+")")
	}
	if len(filter.NotStatuses) > 0 {
		conditions = append(conditions, "status NOT IN ("+placeholders(&args, filter.NotStatuses)+")")
	}
	if filter.Path != "" {
		args = append(args, filter.Path)
		conditions = append(conditions, fmt.Sprintf("approval_path = $%d", len(args)))
	}
	if filter.Province != "" {
		args = append(args, filter.Province)
		conditions = append(conditions, fmt.Sprintf("province = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(title) LIKE $%d OR LOWER(specialization) LIKE $%d)", len(args), len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("requested_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("requested_date <= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func placeholders(args *[]interface{}, statuses []models.TrainingStatus) string {
	parts := make([]string, len(statuses))
	for i, status := range statuses {
		*args = append(*args, status)
		parts[i] = fmt.Sprintf("$%d", len(*args))
	}
	return strings.Join(parts, ",")
}
