package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// ResultCache stores successful calculation results for a bounded TTL. The
// cache is shared mutable state: implementations must be safe for concurrent
// readers and writers and must never serve an expired entry as fresh.
type ResultCache interface {
	// Get returns the cached result for a key, or nil on a miss. A cache
	// error is returned for observability but callers treat it as a miss.
	Get(ctx context.Context, key string) (*tax.TaxCalculationResult, error)
	// Set stores a result under the key for the given TTL.
	Set(ctx context.Context, key string, result *tax.TaxCalculationResult, ttl time.Duration) error
}

// CacheKey derives the cache key from the canonical address and the amount
// bucket. Any change to the address or amount produces a different key, which
// is what invalidates stale entries for a changed request.
func CacheKey(state, zip, street string, houseNumber int, amount decimal.Decimal) string {
	return fmt.Sprintf("tax:%s:%s:%s:%d:%s", state, zip, street, houseNumber, amount.StringFixed(2))
}
