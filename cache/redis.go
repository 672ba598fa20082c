package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ZaguanLabs/subflow"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces subflow keys in a shared Redis database.
const DefaultRedisPrefix = "subflow:"

// RedisCache is a Redis-backed translation cache.
type RedisCache struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379")
	TTL       int    // TTL in seconds (0 = no expiration)
	KeyPrefix string // Prefix for all keys (default: "subflow:")
}

// NewRedisCache creates a new Redis cache with the given configuration.
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &subflow.CacheError{Message: "invalid redis URL", Cause: err}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, &subflow.CacheError{Message: "redis unreachable", Cause: err}
	}

	return NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix), nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client *redis.Client, ttlSeconds int, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisPrefix
	}

	return &RedisCache{
		client:    client,
		ttl:       ttlFromSeconds(ttlSeconds),
		keyPrefix: keyPrefix,
	}
}

// Get retrieves a value from Redis. Errors are reported as misses.
func (c *RedisCache) Get(key string) (string, bool) {
	val, err := c.client.Get(context.Background(), c.keyPrefix+key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

// Set stores a value in Redis.
func (c *RedisCache) Set(key string, value string) error {
	if err := c.client.Set(context.Background(), c.keyPrefix+key, value, c.ttl).Err(); err != nil {
		return &subflow.CacheError{Message: "redis set failed", Cause: err}
	}
	return nil
}

// Entries scans every key under the prefix. Keys that expire during the
// scan are skipped.
func (c *RedisCache) Entries() (map[string]string, error) {
	ctx := context.Background()
	result := make(map[string]string)

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", 100).Result()
		if err != nil {
			return nil, &subflow.CacheError{Message: "redis scan failed", Cause: err}
		}
		for _, key := range keys {
			val, err := c.client.Get(ctx, key).Result()
			if errors.Is(err, redis.Nil) {
				continue
			}
			if err != nil {
				return nil, &subflow.CacheError{Message: "redis get failed", Cause: err}
			}
			result[strings.TrimPrefix(key, c.keyPrefix)] = val
		}
		if next == 0 {
			return result, nil
		}
		cursor = next
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping() error {
	return c.client.Ping(context.Background()).Err()
}

var (
	_ TranslationCache = (*RedisCache)(nil)
	_ Enumerable       = (*RedisCache)(nil)
)
