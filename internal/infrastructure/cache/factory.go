package cache

import (
	"fmt"

	"go.uber.org/zap"

	apptax "github.com/msphost/taxengine/internal/application/tax"
)

// ResultCacheFactory creates result caches based on configuration
type ResultCacheFactory struct {
	redisConfig           RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// ResultCacheFactoryOption is a functional option for configuring the factory
type ResultCacheFactoryOption func(*ResultCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) ResultCacheFactoryOption {
	return func(f *ResultCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory cache
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) ResultCacheFactoryOption {
	return func(f *ResultCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewResultCacheFactory creates a new factory
func NewResultCacheFactory(cfg RedisConfig, opts ...ResultCacheFactoryOption) *ResultCacheFactory {
	f := &ResultCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateRedisCache creates a Redis-backed result cache
func (f *ResultCacheFactory) CreateRedisCache() (apptax.ResultCache, error) {
	c, err := NewRedisResultCache(f.redisConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis result cache: %w", err)
	}
	return c, nil
}

// CreateInMemoryCache creates a process-local result cache. Results cached
// in one instance are not visible to others.
func (f *ResultCacheFactory) CreateInMemoryCache() apptax.ResultCache {
	return NewInMemoryResultCache()
}

// CreateCache tries Redis first and falls back to the in-memory cache when
// Redis is unavailable and fallback is allowed.
func (f *ResultCacheFactory) CreateCache() (apptax.ResultCache, error) {
	c, err := f.CreateRedisCache()
	if err == nil {
		f.logger.Info("using Redis tax result cache")
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for result cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory tax result cache",
		zap.Error(err),
	)
	return f.CreateInMemoryCache(), nil
}

// Compile-time interface checks
var (
	_ apptax.ResultCache = (*InMemoryResultCache)(nil)
	_ apptax.ResultCache = (*RedisResultCache)(nil)
)
