package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// TenantRepository implements the repositories.TenantRepository interface.
// Tenants always live in the control-plane database, whatever tenant the
// context is bound to.
type TenantRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB, logger *zap.Logger) repositories.TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

const tenantColumns = `id, unique_code, name, data_store, active, created_at, updated_at`

// GetByUniqueCode retrieves a tenant by its company code
func (r *TenantRepository) GetByUniqueCode(ctx context.Context, code string) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE unique_code = $1`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tenant with code %q: %w", code, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	r.logger.Debug("tenant loaded", zap.Int64("tenant_id", t.ID), zap.String("company_code", code))
	return t, nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`

	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tenant %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return t, nil
}

func scanTenant(row *sql.Row) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(
		&t.ID,
		&t.UniqueCode,
		&t.Name,
		&t.DataStore,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}
