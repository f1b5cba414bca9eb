package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/catering-erp/config"
	"github.com/upb/catering-erp/tenant"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrRegistryClosed is returned by For once Close has run
var ErrRegistryClosed = errors.New("registry closed")

// OpenFunc opens a pool for one data store
type OpenFunc func(ctx context.Context, cfg config.DatabaseConfig) (*DB, error)

// Registry hands out the connection pool for the tenant bound to a context.
// Tenant pools are opened lazily on first use and kept until Close. Opening
// happens outside the lock, one open per data store at a time.
type Registry struct {
	controlPlane *DB
	cfg          config.TenantDatabaseConfig
	open         OpenFunc
	logger       *zap.Logger
	opening      singleflight.Group

	mu      sync.RWMutex
	tenants map[string]*DB
	closed  bool
}

// NewRegistry creates a registry rooted at the control-plane pool
func NewRegistry(controlPlane *DB, cfg config.TenantDatabaseConfig, logger *zap.Logger) *Registry {
	r := &Registry{
		controlPlane: controlPlane,
		cfg:          cfg,
		logger:       logger,
		tenants:      make(map[string]*DB),
	}
	r.open = func(ctx context.Context, dbCfg config.DatabaseConfig) (*DB, error) {
		return NewDB(ctx, dbCfg, logger)
	}
	return r
}

// ControlPlane returns the control-plane pool
func (r *Registry) ControlPlane() *DB {
	return r.controlPlane
}

// Register installs an already open pool for dataStore
func (r *Registry) Register(dataStore string, db *DB) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[dataStore] = db
}

// For returns the pool selected by the tenant bound to ctx. Requests without
// a tenant use the control-plane pool.
func (r *Registry) For(ctx context.Context) (*DB, error) {
	tc := tenant.FromContext(ctx)
	if tc.IsControlPlane() {
		return r.controlPlane, nil
	}

	if db, ok := r.lookup(tc.DataStore); ok {
		return db, nil
	}

	// shared by every waiter, so detached from this caller's cancellation
	openCtx := context.WithoutCancel(ctx)
	v, err, _ := r.opening.Do(tc.DataStore, func() (interface{}, error) {
		if db, ok := r.lookup(tc.DataStore); ok {
			return db, nil
		}
		return r.openTenant(openCtx, tc)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DB), nil
}

func (r *Registry) lookup(dataStore string) (*DB, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.tenants[dataStore]
	return db, ok
}

func (r *Registry) openTenant(ctx context.Context, tc tenant.Context) (*DB, error) {
	db, err := r.open(ctx, r.cfg.ForDataStore(tc.DataStore))
	if err != nil {
		r.logger.Error("failed to open tenant data store",
			zap.String("data_store", tc.DataStore),
			zap.Int64("tenant_id", tc.TenantID),
			zap.Error(err))
		return nil, fmt.Errorf("open data store %s: %w", tc.DataStore, err)
	}

	if r.cfg.InitSchema {
		if err := db.InitTenantSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = db.Close()
		return nil, ErrRegistryClosed
	}
	r.tenants[tc.DataStore] = db
	return db, nil
}

// Len returns the number of open tenant pools
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tenants)
}

// Close closes every pool, tenant pools first
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true

	var firstErr error
	for name, db := range r.tenants {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close data store %s: %w", name, err)
		}
		delete(r.tenants, name)
	}
	if err := r.controlPlane.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
