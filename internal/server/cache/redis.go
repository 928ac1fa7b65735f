// Package cache provides a Redis-backed cache for display-ready amendment
// histories. Cache failures are soft: callers fall through to storage.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"amendtrail/internal/types"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config represents cache configuration
type Config struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	TTL          time.Duration `mapstructure:"ttl"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Cache caches display lists in Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates new cache instance
func New(cfg *Config, logger *zap.Logger) (*Cache, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, fmt.Errorf("redis configuration is nil or empty")
	}

	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rc := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		DialTimeout:  cfg.DialTimeout,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connect error: %w", err)
	}

	return &Cache{
		client: rc,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

// DisplayKey builds the cache key for one entity's display list
func DisplayKey(entityID, locale string) string {
	if locale == "" {
		locale = "default"
	}
	return fmt.Sprintf("amendtrail:display:%s:%s", entityID, locale)
}

// GetDisplayList returns a cached display list, if present
func (c *Cache) GetDisplayList(ctx context.Context, key string) ([]types.DisplayEntry, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache read failed",
				zap.String("key", key),
				zap.Error(err))
		}
		return nil, false
	}

	var entries []types.DisplayEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("cache entry corrupt, dropping",
			zap.String("key", key),
			zap.Error(err))
		c.client.Del(ctx, key)
		return nil, false
	}
	return entries, true
}

// SetDisplayList stores a display list with the configured TTL
func (c *Cache) SetDisplayList(ctx context.Context, key string, entries []types.DisplayEntry) {
	data, err := json.Marshal(entries)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache write failed",
			zap.String("key", key),
			zap.Error(err))
	}
}

// InvalidateEntity deletes all cached display lists for one entity
func (c *Cache) InvalidateEntity(ctx context.Context, entityID string) {
	pattern := fmt.Sprintf("amendtrail:display:%s:*", entityID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			c.logger.Warn("cache invalidation failed",
				zap.String("key", iter.Val()),
				zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("cache scan failed",
			zap.String("pattern", pattern),
			zap.Error(err))
	}
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *Cache) Close() error {
	return c.client.Close()
}
