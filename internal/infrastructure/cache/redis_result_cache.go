package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// RedisResultCache caches tax calculation results in Redis so calculation
// results are shared across instances of the hosting application. Entries
// carry their TTL in Redis itself, so an expired entry is simply absent.
type RedisResultCache struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisResultCache creates a Redis-backed result cache and verifies the
// connection.
func NewRedisResultCache(cfg RedisConfig) (*RedisResultCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisResultCache{
		client:    client,
		keyPrefix: "taxengine:result:",
	}, nil
}

// NewRedisResultCacheWithClient creates a cache over an existing client.
// Useful for testing or when sharing a client across components.
func NewRedisResultCacheWithClient(client *redis.Client, keyPrefix string) *RedisResultCache {
	if keyPrefix == "" {
		keyPrefix = "taxengine:result:"
	}
	return &RedisResultCache{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Get returns the cached result for a key, or nil on a miss.
func (c *RedisResultCache) Get(ctx context.Context, key string) (*tax.TaxCalculationResult, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached result: %w", err)
	}

	var result tax.TaxCalculationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, nil
}

// Set stores a result under the key for the given TTL.
func (c *RedisResultCache) Set(ctx context.Context, key string, result *tax.TaxCalculationResult, ttl time.Duration) error {
	if result == nil || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result for cache: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached result: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisResultCache) Close() error {
	return c.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (c *RedisResultCache) GetClient() *redis.Client {
	return c.client
}
