package postgres

import (
	"context"

	"github.com/upb/catering-erp/config"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages all repositories
type RepositoryFactory struct {
	registry *Registry
	logger   *zap.Logger
}

// NewRepositoryFactory opens the control-plane pool and builds the tenant
// registry on top of it
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.TenantDatabase.InitSchema {
		if err := db.InitControlPlaneSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewRepositoryFactoryWithRegistry(NewRegistry(db, cfg.TenantDatabase, logger), logger), nil
}

// NewRepositoryFactoryWithRegistry wraps an existing registry
func NewRepositoryFactoryWithRegistry(registry *Registry, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{registry: registry, logger: logger}
}

// NewRepositories creates all repository instances
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Tenants:       NewTenantRepository(f.registry.ControlPlane(), f.logger),
		Users:         NewUserRepository(f.registry, f.logger),
		Rights:        NewRightsRepository(f.registry, f.logger),
		LoginAttempts: NewLoginAttemptRepository(f.registry, f.logger),
	}
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.registry, f.logger)
}

// Registry returns the data store registry
func (f *RepositoryFactory) Registry() *Registry {
	return f.registry
}

// GetDB returns the control-plane connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.registry.ControlPlane()
}

// Close closes every open pool
func (f *RepositoryFactory) Close() error {
	return f.registry.Close()
}
