package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/upb/catering-erp/config"
	"github.com/upb/catering-erp/files"
	"github.com/upb/catering-erp/handlers"
	"github.com/upb/catering-erp/mail"
	"github.com/upb/catering-erp/middleware"
	"github.com/upb/catering-erp/repositories"
	"github.com/upb/catering-erp/repositories/postgres"
	"github.com/upb/catering-erp/services"
	"github.com/upb/catering-erp/services/audit"
	"github.com/upb/catering-erp/services/rights"
	"github.com/upb/catering-erp/tenant"
	"github.com/upb/catering-erp/token"
	"go.uber.org/zap"
)

// auditStopTimeout bounds how long Close waits for queued login attempts
const auditStopTimeout = 10 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Tenants       repositories.TenantRepository
	Users         repositories.UserRepository
	Rights        repositories.RightsRepository
	LoginAttempts repositories.LoginAttemptRepository
	TxManager     repositories.TransactionManager

	// Tenancy
	RedisClient    *redis.Client
	RedisDirectory *tenant.RedisDirectory // nil when Redis is not configured
	TenantResolver *tenant.Resolver

	// Auth
	Codec       *token.Codec
	Audit       *audit.AuditService
	AuthService *services.AuthService
	Files       files.Locator

	// Rights
	RightsEngine *rights.Engine

	// HTTP
	AuthMiddleware   *middleware.AuthMiddleware
	RightsMiddleware *middleware.RightsMiddleware
	AuthHandler      *handlers.AuthHandler
	RightsHandler    *handlers.RightsHandler
	UserHandler      *handlers.UserHandler
	HealthHandler    *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps, err := NewDependenciesWithFactory(ctx, cfg, factory, logger)
	if err != nil {
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWithFactory wires the application on top of an existing
// repository factory
func NewDependenciesWithFactory(ctx context.Context, cfg *config.Config, factory *postgres.RepositoryFactory, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:      cfg,
		Logger:      logger,
		RepoFactory: factory,
		DB:          factory.GetDB(),
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initTenants(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tenants: %w", err)
	}

	deps.initRights(cfg)

	if err := deps.initAuth(cfg); err != nil {
		deps.closeRedis()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initHTTP()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase checks the control-plane connection
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if err := d.DB.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Tenants = repos.Tenants
	d.Users = repos.Users
	d.Rights = repos.Rights
	d.LoginAttempts = repos.LoginAttempts
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initTenants builds the tenant resolver, with a Redis tier shared between
// instances when configured
func (d *Dependencies) initTenants(ctx context.Context, cfg *config.Config) error {
	var dir tenant.Directory = d.Tenants

	if cfg.Redis.Enabled() {
		client, err := tenant.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		d.RedisClient = client
		d.RedisDirectory = tenant.NewRedisDirectory(client, d.Tenants, cfg.Redis.TTL, d.Logger)
		dir = d.RedisDirectory
		d.Logger.Info("redis tenant cache enabled")
	}

	d.TenantResolver = tenant.NewResolver(dir, tenant.ResolverConfig{
		Size: cfg.Cache.TenantSize,
		TTL:  cfg.Cache.TenantTTL,
	}, d.Logger)

	return nil
}

// initAuth wires the token codec, login-attempt writer and auth service.
// The rights engine must already exist.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	codec, err := token.NewCodec(token.Config{
		Secret: cfg.JWT.Secret,
		Leeway: cfg.JWT.Leeway,
	})
	if err != nil {
		return err
	}
	d.Codec = codec

	locator, err := files.NewURLLocator(cfg.Files.AvatarBaseURL)
	if err != nil {
		return fmt.Errorf("invalid avatar base URL: %w", err)
	}
	d.Files = locator

	d.Audit = audit.NewAuditService(d.LoginAttempts, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := d.Audit.Start(); err != nil {
		return err
	}

	d.AuthService = services.NewAuthService(services.AuthDeps{
		Tenants:  d.TenantResolver,
		Users:    d.Users,
		TxMgr:    d.TxManager,
		Codec:    codec,
		Recorder: d.Audit,
		Mailer:   mail.New(cfg.Mail, d.Logger),
		Links:    mail.NewLinks(cfg.Mail),
		Files:    locator,
		Grants:   d.RightsEngine,
	}, services.AuthConfig{
		TokenTTL: cfg.JWT.TTL,
		ResetTTL: cfg.JWT.ResetTTL,
	}, d.Logger)

	d.Logger.Info("auth service initialized")
	return nil
}

// initRights builds the rights engine over its grant cache
func (d *Dependencies) initRights(cfg *config.Config) {
	cache := rights.NewGrantCache(cfg.Cache.RightsSize, cfg.Cache.RightsTTL)
	d.RightsEngine = rights.NewEngine(d.Rights, cache, d.Logger)
}

// initHTTP builds middleware and handlers
func (d *Dependencies) initHTTP() {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Codec, d.TenantResolver, d.AuthService, middleware.DefaultAuthConfig(), d.Logger)
	d.RightsMiddleware = middleware.NewRightsMiddleware(d.RightsEngine, d.Logger)

	d.AuthHandler = handlers.NewAuthHandler(d.AuthService, d.Logger)
	d.RightsHandler = handlers.NewRightsHandler(d.RightsEngine, d.Logger)
	d.UserHandler = handlers.NewUserHandler(d.Audit, d.Files, d.Logger)

	// a nil *RedisDirectory must not reach the handler as a non-nil Pinger
	var redisPinger handlers.Pinger
	if d.RedisDirectory != nil {
		redisPinger = d.RedisDirectory
	}
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, redisPinger, d.Logger).
		WithStats("tenantCache", func() interface{} {
			hits, misses := d.TenantResolver.Stats()
			return map[string]uint64{"hits": hits, "misses": misses}
		}).
		WithStats("rightsCache", func() interface{} { return d.RightsEngine.CacheStats() }).
		WithStats("audit", func() interface{} { return d.Audit.GetStats() })
}

func (d *Dependencies) closeRedis() error {
	if d.RedisClient == nil {
		return nil
	}
	err := d.RedisClient.Close()
	d.RedisClient = nil
	return err
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	// Drain queued login attempts before the pools go away
	if d.Audit != nil {
		if err := d.Audit.Stop(auditStopTimeout); err != nil {
			d.Logger.Warn("audit service stop", zap.Error(err))
		}
	}

	if err := d.closeRedis(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
