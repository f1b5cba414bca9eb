package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// LoginAttemptRepository implements the repositories.LoginAttemptRepository interface
type LoginAttemptRepository struct {
	registry *Registry
	logger   *zap.Logger
}

// NewLoginAttemptRepository creates a new login attempt repository
func NewLoginAttemptRepository(registry *Registry, logger *zap.Logger) repositories.LoginAttemptRepository {
	return &LoginAttemptRepository{
		registry: registry,
		logger:   logger,
	}
}

// Insert inserts a new login attempt
func (r *LoginAttemptRepository) Insert(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (id, user_id, username, success, ip_address, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	executor, err := GetExecutor(ctx, r.registry)
	if err != nil {
		return err
	}

	var userID sql.NullInt64
	if attempt.UserID != nil {
		userID = sql.NullInt64{Int64: *attempt.UserID, Valid: true}
	}

	_, err = executor.ExecContext(ctx, query,
		attempt.ID,
		userID,
		attempt.Username,
		attempt.Success,
		attempt.IPAddress,
		attempt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}

	r.logger.Debug("login attempt inserted",
		zap.String("id", attempt.ID.String()),
		zap.String("username", attempt.Username),
		zap.Bool("success", attempt.Success))
	return nil
}

// ListByUsername retrieves recent attempts for a username, newest first
func (r *LoginAttemptRepository) ListByUsername(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, user_id, username, success, ip_address, timestamp
		FROM login_attempts
		WHERE username = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	executor, err := GetExecutor(ctx, r.registry)
	if err != nil {
		return nil, err
	}

	rows, err := executor.QueryContext(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)
	for rows.Next() {
		a := &models.LoginAttempt{}
		var userID sql.NullInt64
		if err := rows.Scan(&a.ID, &userID, &a.Username, &a.Success, &a.IPAddress, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			a.UserID = &id
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login attempts: %w", err)
	}

	return attempts, nil
}
