package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/catering-erp/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	name   string
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return Wrap(db, cfg.Database, logger), nil
}

// Wrap adopts an already open pool, e.g. one created by sqlmock
func Wrap(db *sql.DB, name string, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		name:   name,
		logger: logger,
	}
}

// Name returns the data store name this pool points at
func (db *DB) Name() string {
	return db.name
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection", zap.String("data_store", db.name))
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// InitControlPlaneSchema creates the tenant registry
func (db *DB) InitControlPlaneSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS tenants (
			id BIGSERIAL PRIMARY KEY,
			unique_code VARCHAR(64) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL,
			data_store VARCHAR(128) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize control-plane schema: %w", err)
	}

	db.logger.Info("control-plane schema initialized")
	return nil
}

// InitTenantSchema creates the tables a tenant data store needs
func (db *DB) InitTenantSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(128) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			active BOOLEAN NOT NULL DEFAULT true,
			names JSONB,
			avatar_path VARCHAR(512),
			reset_token TEXT,
			password_changed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS roles (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(64) NOT NULL UNIQUE
		);

		CREATE TABLE IF NOT EXISTS user_roles (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			role_id BIGINT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
			PRIMARY KEY (user_id, role_id)
		);

		CREATE TABLE IF NOT EXISTS capabilities (
			id BIGSERIAL PRIMARY KEY,
			key VARCHAR(128) NOT NULL UNIQUE,
			label VARCHAR(255) NOT NULL,
			parent_id BIGINT REFERENCES capabilities(id) ON DELETE CASCADE,
			sidebar BOOLEAN NOT NULL DEFAULT false,
			sort_order INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS user_rights (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			capability_id BIGINT NOT NULL REFERENCES capabilities(id) ON DELETE CASCADE,
			can_view BOOLEAN NOT NULL DEFAULT false,
			can_add BOOLEAN NOT NULL DEFAULT false,
			can_edit BOOLEAN NOT NULL DEFAULT false,
			can_delete BOOLEAN NOT NULL DEFAULT false,
			can_print BOOLEAN NOT NULL DEFAULT false,
			PRIMARY KEY (user_id, capability_id)
		);

		CREATE TABLE IF NOT EXISTS login_attempts (
			id UUID PRIMARY KEY,
			user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			username VARCHAR(128) NOT NULL,
			success BOOLEAN NOT NULL,
			ip_address VARCHAR(45),
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_capabilities_parent_id ON capabilities(parent_id);
		CREATE INDEX IF NOT EXISTS idx_login_attempts_username ON login_attempts(username);
		CREATE INDEX IF NOT EXISTS idx_login_attempts_timestamp ON login_attempts(timestamp);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize tenant schema: %w", err)
	}

	db.logger.Info("tenant schema initialized", zap.String("data_store", db.name))
	return nil
}
