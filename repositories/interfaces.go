package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/upb/catering-erp/models"
)

// ErrNotFound is wrapped by repositories when a row does not exist
var ErrNotFound = errors.New("not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction on the data store selected by ctx
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// TenantRepository reads tenants from the control-plane database
type TenantRepository interface {
	GetByUniqueCode(ctx context.Context, code string) (*models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
}

// UserRepository handles user rows in the tenant data store selected by ctx
type UserRepository interface {
	// GetByUsername retrieves a user with roles by login name
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID retrieves a user with roles by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// UpdateResetToken stores the latest password-reset token, replacing any previous one
	UpdateResetToken(ctx context.Context, userID int64, token string) error

	// UpdatePassword stores a new hash, clears the reset token and stamps changedAt
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, changedAt time.Time) error
}

// RightsRepository reads per-user capability grants
type RightsRepository interface {
	// GetGrant retrieves the grant for one capability key, nil when the user has none
	GetGrant(ctx context.Context, userID int64, capabilityKey string) (*models.RightsGrant, error)

	// MainCapabilities lists viewable top-level grants, optionally only sidebar entries
	MainCapabilities(ctx context.Context, userID int64, sidebarOnly bool) ([]*models.RightsGrant, error)

	// SubCapabilities lists viewable grants under parentID
	SubCapabilities(ctx context.Context, userID, parentID int64) ([]*models.RightsGrant, error)
}

// LoginAttemptRepository handles the insert-only login attempt log
type LoginAttemptRepository interface {
	// Insert inserts a new login attempt
	Insert(ctx context.Context, attempt *models.LoginAttempt) error

	// ListByUsername retrieves recent attempts for a username, newest first
	ListByUsername(ctx context.Context, username string, limit int) ([]*models.LoginAttempt, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Tenants       TenantRepository
	Users         UserRepository
	Rights        RightsRepository
	LoginAttempts LoginAttemptRepository
}
