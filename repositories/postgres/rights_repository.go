package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// RightsRepository implements the repositories.RightsRepository interface
type RightsRepository struct {
	registry *Registry
	logger   *zap.Logger
}

// NewRightsRepository creates a new rights repository
func NewRightsRepository(registry *Registry, logger *zap.Logger) repositories.RightsRepository {
	return &RightsRepository{
		registry: registry,
		logger:   logger,
	}
}

const grantSelect = `
	SELECT ur.user_id, c.id, c.key, c.label, c.parent_id, c.sidebar, c.sort_order,
		ur.can_view, ur.can_add, ur.can_edit, ur.can_delete, ur.can_print
	FROM user_rights ur
	JOIN capabilities c ON c.id = ur.capability_id
`

// GetGrant retrieves the grant for one capability key
func (r *RightsRepository) GetGrant(ctx context.Context, userID int64, capabilityKey string) (*models.RightsGrant, error) {
	executor, err := GetExecutor(ctx, r.registry)
	if err != nil {
		return nil, err
	}

	query := grantSelect + ` WHERE ur.user_id = $1 AND c.key = $2`

	g, err := scanGrant(executor.QueryRowContext(ctx, query, userID, capabilityKey))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grant: %w", err)
	}

	return g, nil
}

// MainCapabilities lists viewable top-level grants
func (r *RightsRepository) MainCapabilities(ctx context.Context, userID int64, sidebarOnly bool) ([]*models.RightsGrant, error) {
	query := grantSelect + ` WHERE ur.user_id = $1 AND c.parent_id IS NULL AND ur.can_view = true`
	if sidebarOnly {
		query += ` AND c.sidebar = true`
	}
	query += ` ORDER BY c.sort_order, c.id`

	return r.list(ctx, query, userID)
}

// SubCapabilities lists viewable grants under parentID
func (r *RightsRepository) SubCapabilities(ctx context.Context, userID, parentID int64) ([]*models.RightsGrant, error) {
	query := grantSelect + ` WHERE ur.user_id = $1 AND c.parent_id = $2 AND ur.can_view = true ORDER BY c.sort_order, c.id`
	return r.list(ctx, query, userID, parentID)
}

func (r *RightsRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.RightsGrant, error) {
	executor, err := GetExecutor(ctx, r.registry)
	if err != nil {
		return nil, err
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	grants := make([]*models.RightsGrant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grants: %w", err)
	}

	r.logger.Debug("grants loaded", zap.Int("count", len(grants)))
	return grants, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGrant(row rowScanner) (*models.RightsGrant, error) {
	g := &models.RightsGrant{}
	var parentID sql.NullInt64
	err := row.Scan(
		&g.UserID,
		&g.CapabilityID,
		&g.CapabilityKey,
		&g.Label,
		&parentID,
		&g.Sidebar,
		&g.SortOrder,
		&g.CanView,
		&g.CanAdd,
		&g.CanEdit,
		&g.CanDelete,
		&g.CanPrint,
	)
	if err != nil {
		return nil, err
	}
	if parentID.Valid {
		p := parentID.Int64
		g.ParentID = &p
	}
	return g, nil
}
