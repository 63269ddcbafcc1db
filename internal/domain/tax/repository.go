package tax

import (
	"context"
	"time"
)

// LookupQuery identifies a canonical delivery address for jurisdiction
// resolution. Street must already be normalized to the canonical form the
// index was built with.
type LookupQuery struct {
	State       string
	Zip         string
	HouseNumber int
	Street      string
	AsOf        time.Time
}

// JurisdictionResolver resolves a canonical address to the set of taxing
// jurisdictions containing it. Returns ErrJurisdictionNotFound when no range
// record matches; callers must treat that as a local-data gap, never as a
// hard error.
type JurisdictionResolver interface {
	Lookup(ctx context.Context, q LookupQuery) (*JurisdictionSet, error)
}

// RateRepository serves effective-dated rates for resolved jurisdictions.
type RateRepository interface {
	// ActiveRates returns the rate active at asOf for each of the given
	// jurisdictions, paired with the jurisdiction's reference data.
	// Jurisdictions with no active rate are omitted; an empty result for a
	// non-empty input means the rate data is missing, not zero-rated.
	ActiveRates(ctx context.Context, ids []TAID, asOf time.Time) ([]ActiveRate, error)
}
