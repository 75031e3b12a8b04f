package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache key prefixes.
const (
	accountKeyPrefix     = "account:"
	transactionKeyPrefix = "tx:"
)

// RedisCache is the fast key-value layer on the cache-aside read path.
// Entries expire via Redis TTL; there is no explicit eviction loop.
type RedisCache struct {
	client redis.Cmdable
	logger *slog.Logger
}

// NewRedisCache connects to Redis using a URL
// (e.g. "redis://localhost:6379/0") and verifies the connection.
func NewRedisCache(ctx context.Context, url string, logger *slog.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("connected to redis", "addr", opts.Addr)
	return &RedisCache{client: client, logger: logger}, nil
}

// NewRedisCacheWithClient wraps an existing client. Used by tests with
// redismock.
func NewRedisCacheWithClient(client redis.Cmdable, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func (c *RedisCache) get(ctx context.Context, key string, out any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("unmarshal cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal for cache %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) GetAccount(ctx context.Context, address string) (*AccountRecord, bool, error) {
	rec := &AccountRecord{}
	ok, err := c.get(ctx, accountKeyPrefix+address, rec)
	if !ok || err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (c *RedisCache) SetAccount(ctx context.Context, rec *AccountRecord, ttl time.Duration) error {
	return c.set(ctx, accountKeyPrefix+rec.Address, rec, ttl)
}

func (c *RedisCache) GetTransaction(ctx context.Context, signature string) (*TransactionRecord, bool, error) {
	rec := &TransactionRecord{}
	ok, err := c.get(ctx, transactionKeyPrefix+signature, rec)
	if !ok || err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (c *RedisCache) SetTransaction(ctx context.Context, rec *TransactionRecord, ttl time.Duration) error {
	return c.set(ctx, transactionKeyPrefix+rec.Signature, rec, ttl)
}

// InvalidateAccount drops the cached entry for address, forcing the next read
// back to the read-of-record backend.
func (c *RedisCache) InvalidateAccount(ctx context.Context, address string) error {
	return c.client.Del(ctx, accountKeyPrefix+address).Err()
}
