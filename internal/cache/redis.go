package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "awstrack:alert:dedup:"

// Redis is a dedup cache backed by Redis, for deployments where several
// processes share one alert stream. SETNX with the retention window as TTL
// gives the same semantics as the memory cache.
type Redis struct {
	client    *redis.Client
	retention time.Duration
}

// RedisOptions configures the Redis dedup cache.
type RedisOptions struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedis creates a Redis-backed dedup cache and verifies connectivity.
func NewRedis(ctx context.Context, opts RedisOptions, retention time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Redis{client: client, retention: retention}, nil
}

// NewRedisWithClient wraps an existing client; used by tests.
func NewRedisWithClient(client *redis.Client, retention time.Duration) *Redis {
	return &Redis{client: client, retention: retention}
}

// Seen implements Dedup.
func (c *Redis) Seen(ctx context.Context, key string) (bool, error) {
	set, err := c.client.SetNX(ctx, dedupKeyPrefix+key, 1, c.retention).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return !set, nil
}

// Close releases the underlying client.
func (c *Redis) Close() error {
	return c.client.Close()
}
