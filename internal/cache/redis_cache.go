package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/config"
	"github.com/redis/go-redis/v9"
)

type redisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	prefix     string
}

// NewRedisCache stores JSON values under "<prefix>:<key>". The client is owned
// by the caller.
func NewRedisCache(client *redis.Client, cfg *config.CacheConfig) Cache {
	return &redisCache{
		client:     client,
		defaultTTL: cfg.DefaultTTL,
		prefix:     cfg.KeyPrefix,
	}
}

func (r *redisCache) key(key string) string {
	if r.prefix == "" {
		return key
	}

	return r.prefix + ":" + key
}

func (r *redisCache) Get(ctx context.Context, key string, value any) (bool, error) {

	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to get key %s from redis: %w", key, err)
	}

	if err := json.Unmarshal(data, value); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache data for key %s: %w", key, err)
	}

	return true, nil
}

// Set uses the configured default when ttl is zero; NoExpiry keeps the entry
// until it is overwritten or deleted.
func (r *redisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}

	switch {
	case ttl == NoExpiry:
		ttl = 0
	case ttl <= 0:
		ttl = r.defaultTTL
	}

	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s in redis: %w", key, err)
	}

	return nil
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {

	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.key(key)
	}

	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %v from redis: %w", keys, err)
	}

	return nil
}

func (r *redisCache) Close() error {
	return nil
}
