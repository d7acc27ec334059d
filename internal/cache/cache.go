// Package cache holds lookup results for the registry. Redis is used when
// configured; otherwise every call is a miss.
package cache

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache stores JSON-encoded values by key
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// RedisCache is a Cache backed by a Redis client
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing client
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal(val, dest) // Unmarshal JSON into dest
}

// Set stores a value in Redis with a specified TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// Delete removes keys from Redis
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, ...string) error               { return nil }

// Connect builds a Redis-backed cache and checks the connection. An empty
// address yields a NopCache.
func Connect(ctx context.Context, addr, password string, db int) (Cache, func() error, error) {
	if addr == "" {
		return NopCache{}, func() error { return nil }, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,     // Redis server address
		Password: password, // Redis password
		DB:       db,       // Redis database number
	})
	// Test Redis connection
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return NewRedisCache(rdb), rdb.Close, nil
}
