package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemakers/pirates-api/internal/models"
)

var trainingRequestRowColumns = []string{"id", "title", "description", "requester_id", "requester_role", "approval_path", "status",
	"assigned_trainer_id", "specialization", "province", "center", "requested_date", "duration_hours", "max_participants", "notes",
	"rejection_reason", "version", "created_at", "updated_at"}

func trainingRequestRow(rows *sqlmock.Rows, id string, status models.TrainingStatus, version int) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Training request - Leadership", nil, "pdo-1", string(models.RoleProvincialDevelopmentOfficer),
		string(models.ApprovalPathStandard), string(status), nil, "Leadership", "Giza", nil, now, 6, 20, nil, nil, version, now, now)
}

func TestTrainingRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO training_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.TrainingRequest{
		Title:          "Training request - Leadership",
		RequesterID:    "pdo-1",
		RequesterRole:  models.RoleProvincialDevelopmentOfficer,
		ApprovalPath:   models.ApprovalPathStandard,
		Status:         models.StatusUnderReview,
		Specialization: "Leadership",
		Province:       "Giza",
		RequestedDate:  time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, 1, req.Version)
	assert.Equal(t, req.CreatedAt, req.UpdatedAt)

	mock.ExpectQuery(regexp.QuoteMeta("FROM training_requests WHERE id = $1")).
		WithArgs(req.ID).
		WillReturnRows(trainingRequestRow(sqlmock.NewRows(trainingRequestRowColumns), req.ID, models.StatusUnderReview, 1))

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, found.Status)
	assert.Nil(t, found.AssignedTrainerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM training_requests WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestTrainingRequestRepositoryUpdateTransitionCAS(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	trainer := "tr-1"
	params := models.TransitionUpdate{
		ID:                "req-1",
		ExpectedVersion:   4,
		Status:            models.StatusTrainerAssigned,
		AssignedTrainerID: &trainer,
		UpdatedAt:         time.Now(),
	}

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND version = ?")).
		WithArgs(models.StatusTrainerAssigned, "tr-1", nil, params.UpdatedAt, "req-1", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.UpdateTransition(context.Background(), params))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE training_requests SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateTransition(context.Background(), params)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE requester_id = $1 AND status NOT IN ($2,$3) ORDER BY created_at DESC, id LIMIT 20 OFFSET 0")).
		WithArgs("pdo-1", models.StatusCompleted, models.StatusRejected).
		WillReturnRows(trainingRequestRow(sqlmock.NewRows(trainingRequestRowColumns), "req-1", models.StatusCCApproved, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_requests WHERE requester_id = $1 AND status NOT IN ($2,$3)")).
		WithArgs("pdo-1", models.StatusCompleted, models.StatusRejected).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.TrainingRequestFilter{
		RequesterID: "pdo-1",
		NotStatuses: []models.TrainingStatus{models.StatusCompleted, models.StatusRejected},
		SortBy:      "id; DROP TABLE users",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrainingRequestRepositoryListUpcoming(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTrainingRequestRepository(db)

	from := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ($1,$2) AND requested_date >= $3 ORDER BY requested_date ASC, id LIMIT 10 OFFSET 0")).
		WithArgs(models.StatusPMApproved, models.StatusTrainerAssigned, from).
		WillReturnRows(trainingRequestRow(sqlmock.NewRows(trainingRequestRowColumns), "req-1", models.StatusPMApproved, 4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM training_requests")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, err := repo.ListUpcoming(context.Background(), from, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
