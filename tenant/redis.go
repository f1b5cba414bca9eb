package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/upb/catering-erp/config"
	"github.com/upb/catering-erp/models"
	"go.uber.org/zap"
)

// NewRedisClient connects to the shared cache described by cfg
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB > 0 {
		opts.DB = cfg.DB
	}
	if cfg.MaxRetries > 0 {
		opts.MaxRetries = cfg.MaxRetries
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// RedisDirectory is a read-through Directory that shares tenant rows between
// instances. Redis failures fall back to the wrapped directory.
type RedisDirectory struct {
	client *redis.Client
	next   Directory
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisDirectory wraps next with a Redis cache tier
func NewRedisDirectory(client *redis.Client, next Directory, ttl time.Duration, logger *zap.Logger) *RedisDirectory {
	return &RedisDirectory{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: logger,
	}
}

// GetByUniqueCode implements Directory
func (d *RedisDirectory) GetByUniqueCode(ctx context.Context, code string) (*models.Tenant, error) {
	key := codeKey(code)
	if t := d.get(ctx, key); t != nil {
		return t, nil
	}

	t, err := d.next.GetByUniqueCode(ctx, code)
	if err != nil {
		return nil, err
	}
	d.set(ctx, t)
	return t, nil
}

// GetByID implements Directory
func (d *RedisDirectory) GetByID(ctx context.Context, id int64) (*models.Tenant, error) {
	key := idKey(id)
	if t := d.get(ctx, key); t != nil {
		return t, nil
	}

	t, err := d.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	d.set(ctx, t)
	return t, nil
}

// Ping checks connectivity for readiness checks
func (d *RedisDirectory) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *RedisDirectory) get(ctx context.Context, key string) *models.Tenant {
	data, err := d.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil
	} else if err != nil {
		d.logger.Warn("redis get failed, falling back to database", zap.String("key", key), zap.Error(err))
		return nil
	}

	var t models.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		// corrupt entry
		d.client.Del(ctx, key)
		d.logger.Warn("dropping undecodable tenant cache entry", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &t
}

func (d *RedisDirectory) set(ctx context.Context, t *models.Tenant) {
	data, err := json.Marshal(t)
	if err != nil {
		d.logger.Warn("failed to marshal tenant for cache", zap.Int64("tenant_id", t.ID), zap.Error(err))
		return
	}

	pipe := d.client.TxPipeline()
	pipe.Set(ctx, codeKey(t.UniqueCode), data, d.ttl)
	pipe.Set(ctx, idKey(t.ID), data, d.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Warn("redis set failed", zap.Int64("tenant_id", t.ID), zap.Error(err))
	}
}

func codeKey(code string) string {
	return fmt.Sprintf("tenant:code:%s", code)
}

func idKey(id int64) string {
	return fmt.Sprintf("tenant:id:%d", id)
}
