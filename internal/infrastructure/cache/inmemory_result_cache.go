package cache

import (
	"context"
	"sync"
	"time"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// entry is a cached calculation result with its expiration
type entry struct {
	result    tax.TaxCalculationResult
	expiresAt time.Time
}

// InMemoryResultCache caches tax calculation results in a process-local map.
// Suitable for single-instance deployments and testing. Safe for concurrent
// readers and writers; expired entries are never served.
type InMemoryResultCache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryResultCache creates a new in-memory result cache and starts a
// background goroutine that evicts expired entries.
func NewInMemoryResultCache() *InMemoryResultCache {
	c := &InMemoryResultCache{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	c.wg.Add(1)
	go c.cleanupLoop()

	return c
}

// Get returns the cached result for a key, or nil on a miss or expiry.
func (c *InMemoryResultCache) Get(ctx context.Context, key string) (*tax.TaxCalculationResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, exists := c.entries[key]
	if !exists {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		return nil, nil
	}

	result := e.result
	return &result, nil
}

// Set stores a result under the key for the given TTL.
func (c *InMemoryResultCache) Set(ctx context.Context, key string, result *tax.TaxCalculationResult, ttl time.Duration) error {
	if result == nil || ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{
		result:    *result,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (c *InMemoryResultCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (c *InMemoryResultCache) cleanupLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes expired entries from the cache
func (c *InMemoryResultCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
