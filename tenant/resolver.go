package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/upb/catering-erp/models"
	"github.com/upb/catering-erp/repositories"
	"go.uber.org/zap"
)

// ErrUnresolvable is returned when no tenant matches the given code or id
var ErrUnresolvable = errors.New("tenant unresolvable")

// Directory looks tenants up in the control-plane store. Missing tenants are
// reported with an error wrapping repositories.ErrNotFound.
type Directory interface {
	GetByUniqueCode(ctx context.Context, code string) (*models.Tenant, error)
	GetByID(ctx context.Context, id int64) (*models.Tenant, error)
}

// ResolverConfig sizes the resolver cache
type ResolverConfig struct {
	Size int
	TTL  time.Duration
}

// Resolver maps company codes and tenant ids to tenants, caching lookups in
// an expirable LRU. Cached entries are shared between goroutines and must not
// be mutated by callers.
type Resolver struct {
	dir    Directory
	byCode *lru.LRU[string, *models.Tenant]
	byID   *lru.LRU[int64, *models.Tenant]
	logger *zap.Logger
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewResolver creates a tenant resolver
func NewResolver(dir Directory, config ResolverConfig, logger *zap.Logger) *Resolver {
	if config.Size <= 0 {
		config.Size = 256
	}
	if config.TTL <= 0 {
		config.TTL = time.Minute
	}
	return &Resolver{
		dir:    dir,
		byCode: lru.NewLRU[string, *models.Tenant](config.Size, nil, config.TTL),
		byID:   lru.NewLRU[int64, *models.Tenant](config.Size, nil, config.TTL),
		logger: logger,
	}
}

// ByCode resolves the tenant registered under code
func (r *Resolver) ByCode(ctx context.Context, code string) (*models.Tenant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: empty company code", ErrUnresolvable)
	}

	if t, ok := r.byCode.Get(code); ok {
		r.hits.Add(1)
		return t, nil
	}
	r.misses.Add(1)

	t, err := r.dir.GetByUniqueCode(ctx, code)
	if err != nil {
		return nil, r.lookupError(err, zap.String("company_code", code))
	}

	r.remember(t)
	return t, nil
}

// ByID resolves the tenant with the given id
func (r *Resolver) ByID(ctx context.Context, id int64) (*models.Tenant, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid tenant id %d", ErrUnresolvable, id)
	}

	if t, ok := r.byID.Get(id); ok {
		r.hits.Add(1)
		return t, nil
	}
	r.misses.Add(1)

	t, err := r.dir.GetByID(ctx, id)
	if err != nil {
		return nil, r.lookupError(err, zap.Int64("tenant_id", id))
	}

	r.remember(t)
	return t, nil
}

// Stats returns cache hit and miss counters
func (r *Resolver) Stats() (hits, misses uint64) {
	return r.hits.Load(), r.misses.Load()
}

func (r *Resolver) remember(t *models.Tenant) {
	r.byCode.Add(t.UniqueCode, t)
	r.byID.Add(t.ID, t)
}

func (r *Resolver) lookupError(err error, field zap.Field) error {
	if errors.Is(err, repositories.ErrNotFound) {
		r.logger.Debug("tenant not found", field)
		return fmt.Errorf("%w: %v", ErrUnresolvable, err)
	}
	r.logger.Error("tenant lookup failed", field, zap.Error(err))
	return fmt.Errorf("resolve tenant: %w", err)
}
