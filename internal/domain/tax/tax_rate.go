package tax

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TaxRate is an effective-dated rate record for one jurisdiction. At most one
// rate is active per jurisdiction at any instant; inserting a new rate
// expires the prior one at the new rate's effective date.
type TaxRate struct {
	JurisdictionID TAID
	// Percentage is the rate expressed as a percentage, e.g. 6.25 for 6.25%.
	Percentage decimal.Decimal
	// FlatFee is an optional per-transaction fee charged in addition to the
	// percentage. Zero means no fee.
	FlatFee        decimal.Decimal
	EffectiveDate  time.Time
	ExpirationDate *time.Time
	// Priority is a display tie-break for breakdown ordering only; it never
	// affects which rate applies.
	Priority int
}

// Validate checks the structural invariants of a rate record.
func (r *TaxRate) Validate() error {
	if r.JurisdictionID == "" {
		return fmt.Errorf("jurisdiction id is required")
	}
	if r.Percentage.IsNegative() {
		return fmt.Errorf("percentage rate cannot be negative, got %s", r.Percentage)
	}
	if r.FlatFee.IsNegative() {
		return fmt.Errorf("flat fee cannot be negative, got %s", r.FlatFee)
	}
	if r.EffectiveDate.IsZero() {
		return fmt.Errorf("effective date is required")
	}
	if r.ExpirationDate != nil && !r.ExpirationDate.After(r.EffectiveDate) {
		return fmt.Errorf("expiration date must be after effective date")
	}
	return nil
}

// ActiveAt reports whether the rate is in force at the given instant.
// Effective date is inclusive, expiration date exclusive.
func (r *TaxRate) ActiveAt(t time.Time) bool {
	if t.Before(r.EffectiveDate) {
		return false
	}
	if r.ExpirationDate != nil && !t.Before(*r.ExpirationDate) {
		return false
	}
	return true
}

// ExpireAt returns a copy of the rate expired at the given instant. Used when
// a newer rate for the same jurisdiction supersedes this one.
func (r TaxRate) ExpireAt(t time.Time) TaxRate {
	expiry := t
	r.ExpirationDate = &expiry
	return r
}

// ActiveRate pairs an active rate with the jurisdiction it belongs to, ready
// for aggregation into a breakdown line.
type ActiveRate struct {
	Jurisdiction Jurisdiction
	Rate         TaxRate
}
