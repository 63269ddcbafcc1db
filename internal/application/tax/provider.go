package tax

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// DeliveryAddress is the address shape exchanged with external providers and
// accepted by ComputeTax. Street carries the free-text street line; it is
// normalized internally before any lookup.
type DeliveryAddress struct {
	Street string `json:"street" validate:"required"`
	City   string `json:"city"`
	State  string `json:"state" validate:"required,len=2,alpha"`
	Zip    string `json:"zip" validate:"required,len=5,numeric"`
}

// LineItem is a sale line forwarded to external providers that price by line.
type LineItem struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity"`
}

// ProviderRequest is the calculation request sent to an external provider.
type ProviderRequest struct {
	Amount      decimal.Decimal
	Origin      DeliveryAddress
	Destination DeliveryAddress
	LineItems   []LineItem
}

// ProviderTaxResult is a provider's answer mapped into the engine's shape.
// Optional fields a provider omits stay zero-valued; a missing breakdown is
// synthesized into a single line by the orchestrator.
type ProviderTaxResult struct {
	TaxAmount decimal.Decimal
	Rate      decimal.Decimal
	Breakdown []tax.TaxBreakdownLine
}

// Provider is the capability an external tax API adapter exposes. Adapters
// own their transport, authentication and response mapping; any network,
// auth or format failure surfaces as an error the orchestrator absorbs
// before advancing to the next provider in priority order.
type Provider interface {
	// Name identifies the provider in logs and result sources.
	Name() string
	// Calculate computes tax for the request. Implementations must honor
	// context cancellation; the orchestrator bounds each call with a timeout.
	Calculate(ctx context.Context, req ProviderRequest) (*ProviderTaxResult, error)
}
