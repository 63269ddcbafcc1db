package tax

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationSource records which strategy produced a calculation result.
// Provider-backed results use the provider's own name as the source.
type CalculationSource string

const (
	SourceLocal           CalculationSource = "local"
	SourceFallbackDefault CalculationSource = "fallback_default"
)

// TaxBreakdownLine is one jurisdiction's contribution to a calculation.
type TaxBreakdownLine struct {
	JurisdictionID   TAID             `json:"jurisdiction_id,omitempty"`
	JurisdictionName string           `json:"jurisdiction_name"`
	JurisdictionType JurisdictionType `json:"jurisdiction_type"`
	Rate             decimal.Decimal  `json:"rate"`
	TaxAmount        decimal.Decimal  `json:"tax_amount"`
}

// TaxCalculationResult is the itemized outcome of a tax calculation. It is
// transient: the caller decides whether to snapshot it onto an invoice or
// quote.
type TaxCalculationResult struct {
	Subtotal            decimal.Decimal    `json:"subtotal"`
	TotalTaxAmount      decimal.Decimal    `json:"total_tax_amount"`
	TotalRatePercentage decimal.Decimal    `json:"total_rate_percentage"`
	Total               decimal.Decimal    `json:"total"`
	Lines               []TaxBreakdownLine `json:"lines"`
	Source              CalculationSource  `json:"source"`
	// NoApplicableJurisdiction marks a legitimate zero-tax result for an
	// address that resolved to no taxing authority, as opposed to a data gap.
	NoApplicableJurisdiction bool      `json:"no_applicable_jurisdiction,omitempty"`
	ComputedAt               time.Time `json:"computed_at"`
}
