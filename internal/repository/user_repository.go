package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/lifemakers/pirates-api/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, province, center, phone, active, last_login, created_at, updated_at`

// UserRepository reads the user directory and stores sessions and audit entries.
type UserRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// FindByEmail matches email case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "LOWER(email) = LOWER($1)", email)
}

// FindByID returns sql.ErrNoRows for unknown ids.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s LIMIT 1", userColumns, where)
	var user models.User
	err := r.db.GetContext(ctx, &user, query, arg)
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, sql.ErrNoRows):
		return nil, err
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// ListActiveIDsByRole resolves the notification audience for role.
func (r *UserRepository) ListActiveIDsByRole(ctx context.Context, role models.UserRole) ([]string, error) {
	const query = `SELECT id FROM users WHERE role = $1 AND active = TRUE ORDER BY id`
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, role); err != nil {
		return nil, fmt.Errorf("list users by role %s: %w", role, err)
	}
	return ids, nil
}

// UpdateLastLogin stamps a successful sign-in.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return r.touch(ctx, "last_login", id, ts, ts)
}

// UpdatePassword replaces the stored bcrypt hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return r.touch(ctx, "password_hash", id, passwordHash, updatedAt)
}

func (r *UserRepository) touch(ctx context.Context, column, id string, value interface{}, updatedAt time.Time) error {
	query := fmt.Sprintf("UPDATE users SET %s = $2, updated_at = $3 WHERE id = $1", column)
	if _, err := r.db.ExecContext(ctx, query, id, value, updatedAt); err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	return nil
}
