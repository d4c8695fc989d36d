// Package cache wraps the optional Redis tier used for diagnosis results
// and catalog snapshots in server mode.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sympdx-server/internal/domain"
)

// Client wraps a Redis client with JSON get/set helpers.
type Client struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewClient connects to Redis per CacheConfig and verifies the connection.
func NewClient(cfg domain.CacheConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.PoolTimeout = cfg.PoolTimeout
	opts.MaxRetries = cfg.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Client{
		redis:      client,
		defaultTTL: cfg.DefaultTTL,
	}, nil
}

// GetJSON retrieves and decodes a cached value. The second return value is
// false on a cache miss.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading cache key %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		// Drop corrupted entries instead of failing the caller.
		c.redis.Del(ctx, key)
		return false, nil
	}
	return true, nil
}

// SetJSON encodes and stores a value under key with the given TTL. A zero
// TTL uses the configured default.
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache value for %q: %w", key, err)
	}
	if err := c.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("writing cache key %q: %w", key, err)
	}
	return nil
}

// FlushPrefix deletes every key under the given prefix.
func (c *Client) FlushPrefix(ctx context.Context, prefix string) error {
	iter := c.redis.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("deleting cache key %q: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning cache prefix %q: %w", prefix, err)
	}
	return nil
}

// Health verifies the Redis connection.
func (c *Client) Health(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.redis.Close()
}
