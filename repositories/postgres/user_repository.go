package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// UserRepository implements the repositories.UserRepository interface
// against the data store of the tenant bound to the context.
type UserRepository struct {
	registry *Registry
	logger   *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(registry *Registry, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		registry: registry,
		logger:   logger,
	}
}

const userColumns = `id, username, password_hash, COALESCE(email, ''), active, names,
	COALESCE(avatar_path, ''), COALESCE(reset_token, ''), password_changed_at, created_at, updated_at`

// GetByUsername retrieves a user by login name
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return r.getOne(ctx, query, username, fmt.Sprintf("username %q", username))
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.getOne(ctx, query, id, fmt.Sprintf("id %d", id))
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}, desc string) (*models.User, error) {
	executor, err := GetExecutor(ctx, r.registry)
	if err != nil {
		return nil, err
	}

	user := &models.User{}
	var names []byte
	var changedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Email,
		&user.Active,
		&names,
		&user.AvatarPath,
		&user.ResetToken,
		&changedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user with %s: %w", desc, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if len(names) > 0 {
		if err := json.Unmarshal(names, &user.Names); err != nil {
			return nil, fmt.Errorf("failed to decode user names: %w", err)
		}
	}
	if changedAt.Valid {
		t := changedAt.Time
		user.PasswordChangedAt = &t
	}

	roles, err := r.roles(ctx, executor, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return user, nil
}

func (r *UserRepository) roles(ctx context.Context, executor Executor, userID int64) ([]string, error) {
	query := `
		SELECT r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY r.name
	`

	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user roles: %w", err)
	}

	return roles, nil
}

// UpdateResetToken stores the latest password-reset token
func (r *UserRepository) UpdateResetToken(ctx context.Context, userID int64, token string) error {
	query := `UPDATE users SET reset_token = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, "update reset token", userID, query, userID, token, time.Now())
}

// UpdatePassword stores a new hash and clears the reset token
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string, changedAt time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, password_changed_at = $3, updated_at = $3
		WHERE id = $1
	`
	return r.exec(ctx, "update password", userID, query, userID, passwordHash, changedAt)
}

func (r *UserRepository) exec(ctx context.Context, op string, userID int64, query string, args ...interface{}) error {
	executor, err := GetExecutor(ctx, r.registry)
	if err != nil {
		return err
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d: %w", userID, repositories.ErrNotFound)
	}

	r.logger.Debug("user updated", zap.Int64("user_id", userID), zap.String("op", op))
	return nil
}
