package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// developmentJWTSecret is only accepted outside production.
const developmentJWTSecret = "dev-only-signing-secret-change-me-0123456789abcdef"

// Config represents the complete application configuration
type Config struct {
	Server         ServerConfig
	Database       DatabaseConfig // Control-plane database holding the tenant registry
	TenantDatabase TenantDatabaseConfig
	JWT            JWTConfig
	Cache          CacheConfig
	Redis          RedisConfig
	Mail           MailConfig
	Files          FilesConfig
	Audit          AuditConfig
	Observability  ObservabilityConfig
	Environment    string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	ShutdownTimeout   time.Duration
	TrustProxyHeaders bool // only behind a proxy that overwrites X-Forwarded-For
	TLS               struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// TenantDatabaseConfig describes how per-tenant data stores are reached.
// Every tenant row names a data store; the store name is substituted into
// DSNTemplate (a single %s verb) to obtain the connection string.
type TenantDatabaseConfig struct {
	DSNTemplate     string
	InitSchema      bool // Create missing tables on first use of each store
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds token signing settings
type JWTConfig struct {
	Secret   string
	TTL      time.Duration // Session token lifetime
	ResetTTL time.Duration // Password-reset token lifetime
	Leeway   time.Duration // Clock skew tolerated when checking exp
}

// CacheConfig sizes the in-process lookup caches
type CacheConfig struct {
	TenantSize int
	TenantTTL  time.Duration
	RightsSize int
	RightsTTL  time.Duration
}

// RedisConfig holds the optional shared tenant cache. Empty URL disables it.
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TTL        time.Duration
}

// MailConfig holds outbound mail settings for password-reset messages
type MailConfig struct {
	SMTPHost     string
	SMTPPort     int
	Username     string
	Password     string
	From         string
	FrontEndURL  string // Base of reset and reactivation links
	ResetPath    string
	ActivatePath string
}

// FilesConfig points at the file service serving user avatars
type FilesConfig struct {
	AvatarBaseURL string
}

// AuditConfig sizes the login-attempt writer
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:              getEnv("SERVER_HOST", "0.0.0.0"),
			Port:              getPort(),
			ReadTimeout:       getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout:   getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TrustProxyHeaders: getEnvAsBool("SERVER_TRUST_PROXY_HEADERS", false),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		TenantDatabase: TenantDatabaseConfig{
			DSNTemplate:     getEnv("TENANT_DB_DSN_TEMPLATE", "host=localhost port=5432 user=dev password=dev dbname=%s sslmode=disable"),
			InitSchema:      getEnvAsBool("DB_INIT_SCHEMA", false),
			MaxOpenConns:    getEnvAsInt("TENANT_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvAsInt("TENANT_DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getEnvAsDuration("TENANT_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			TTL:      getEnvAsDuration("JWT_TTL", 8*time.Hour),
			ResetTTL: getEnvAsDuration("JWT_RESET_TTL", 24*time.Hour),
			Leeway:   getEnvAsDuration("JWT_CLOCK_LEEWAY", 30*time.Second),
		},
		Cache: CacheConfig{
			TenantSize: getEnvAsInt("TENANT_CACHE_SIZE", 256),
			TenantTTL:  getEnvAsDuration("TENANT_CACHE_TTL", time.Minute),
			RightsSize: getEnvAsInt("RIGHTS_CACHE_SIZE", 4096),
			RightsTTL:  getEnvAsDuration("RIGHTS_CACHE_TTL", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:        getEnv("REDIS_URL", ""),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvAsInt("REDIS_DB", 0),
			PoolSize:   getEnvAsInt("REDIS_POOL_SIZE", 10),
			MaxRetries: getEnvAsInt("REDIS_MAX_RETRIES", 3),
			TTL:        getEnvAsDuration("REDIS_TENANT_TTL", 5*time.Minute),
		},
		Mail: MailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			Username:     getEnv("SMTP_USERNAME", ""),
			Password:     getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", "no-reply@localhost"),
			FrontEndURL:  getEnv("FRONT_END_URL", "http://localhost:4200"),
			ResetPath:    getEnv("RESET_PASSWORD_PATH", "/reset-password"),
			ActivatePath: getEnv("ACTIVATE_ACCOUNT_PATH", "/activate-account"),
		},
		Files: FilesConfig{
			AvatarBaseURL: getEnv("AVATAR_BASE_URL", "http://localhost:8080/files/avatars"),
		},
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.JWT.Secret == "" && !cfg.IsProduction() {
		cfg.JWT.Secret = developmentJWTSecret
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if strings.Count(c.TenantDatabase.DSNTemplate, "%s") != 1 {
		return fmt.Errorf("tenant database DSN template must contain exactly one %%s")
	}

	// HS512 wants at least a 256-bit key
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if c.IsProduction() && c.JWT.Secret == developmentJWTSecret {
		return fmt.Errorf("jwt secret must be set in production")
	}
	if c.JWT.TTL <= 0 || c.JWT.ResetTTL <= 0 {
		return fmt.Errorf("jwt lifetimes must be positive")
	}
	if c.JWT.Leeway < 0 {
		return fmt.Errorf("jwt clock leeway cannot be negative")
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// ForDataStore returns the pool settings for one tenant data store
func (c *TenantDatabaseConfig) ForDataStore(dataStore string) DatabaseConfig {
	return DatabaseConfig{
		ConnectionString: fmt.Sprintf(c.DSNTemplate, dataStore),
		Database:         dataStore,
		MaxOpenConns:     c.MaxOpenConns,
		MaxIdleConns:     c.MaxIdleConns,
		ConnMaxLifetime:  c.ConnMaxLifetime,
	}
}

// Enabled reports whether a Redis URL was configured
func (c *RedisConfig) Enabled() bool {
	return c.URL != ""
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "dev"),
		Password:        getEnv("DB_PASSWORD", "dev"),
		Database:        getEnv("DB_NAME", "catering_master"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
