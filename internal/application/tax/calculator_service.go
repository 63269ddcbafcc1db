package tax

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/domain/tax/valueobject"
)

const (
	defaultProviderTimeout = 10 * time.Second
	defaultCacheTTL        = 15 * time.Minute
)

// CalculateTaxInput is the request accepted by ComputeTax.
type CalculateTaxInput struct {
	Amount      decimal.Decimal `json:"amount"`
	Destination DeliveryAddress `json:"destination" validate:"required"`
	// AsOf selects the dataset and rates in force; zero means now.
	AsOf      time.Time  `json:"as_of"`
	LineItems []LineItem `json:"line_items"`
}

// CalculatorOption configures the CalculatorService.
type CalculatorOption func(*CalculatorService)

// WithProviders sets the external providers tried after the local engine, in
// priority order.
func WithProviders(providers ...Provider) CalculatorOption {
	return func(s *CalculatorService) {
		s.providers = providers
	}
}

// WithResultCache enables caching of successful results.
func WithResultCache(cache ResultCache, ttl time.Duration) CalculatorOption {
	return func(s *CalculatorService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithProviderTimeout bounds each external provider call.
func WithProviderTimeout(timeout time.Duration) CalculatorOption {
	return func(s *CalculatorService) {
		if timeout > 0 {
			s.providerTimeout = timeout
		}
	}
}

// WithFallbackRates sets the static per-state default percentage rates used
// when both local data and every provider fail.
func WithFallbackRates(rates map[string]decimal.Decimal) CalculatorOption {
	return func(s *CalculatorService) {
		s.fallbackRates = make(map[string]decimal.Decimal, len(rates))
		for state, rate := range rates {
			s.fallbackRates[strings.ToUpper(state)] = rate
		}
	}
}

// WithOrigin sets the seller address sent to providers that require an
// origin/destination pair.
func WithOrigin(origin DeliveryAddress) CalculatorOption {
	return func(s *CalculatorService) {
		s.origin = origin
	}
}

// CalculatorService is the provider fallback orchestrator and the engine's
// sole entry point. Strategies are tried in order until one succeeds: the
// local range index, then each external provider, then a static per-state
// default. Every failure past address parsing is absorbed, so ComputeTax
// always returns a usable result.
type CalculatorService struct {
	resolver tax.JurisdictionResolver
	rates    tax.RateRepository

	providers       []Provider
	providerTimeout time.Duration
	origin          DeliveryAddress

	cache    ResultCache
	cacheTTL time.Duration

	fallbackRates map[string]decimal.Decimal

	validate *validator.Validate
	logger   *zap.Logger
}

// NewCalculatorService creates the orchestrator over the local resolver and
// rate repository.
func NewCalculatorService(resolver tax.JurisdictionResolver, rates tax.RateRepository, logger *zap.Logger, opts ...CalculatorOption) *CalculatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CalculatorService{
		resolver:        resolver,
		rates:           rates,
		providerTimeout: defaultProviderTimeout,
		cacheTTL:        defaultCacheTTL,
		fallbackRates:   make(map[string]decimal.Decimal),
		validate:        validator.New(),
		logger:          logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ComputeTax calculates the combined sales tax for a delivery address.
//
// Address parse and validation errors are surfaced to the caller: the
// transaction cannot proceed without a valid address. Every other failure is
// absorbed inside the strategy chain, worst case producing a result tagged
// fallback_default.
func (s *CalculatorService) ComputeTax(ctx context.Context, input CalculateTaxInput) (*tax.TaxCalculationResult, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid tax calculation input: %w", err)
	}
	if input.Amount.IsNegative() {
		return nil, fmt.Errorf("invalid tax calculation input: amount cannot be negative")
	}

	addr, err := valueobject.Normalize(input.Destination.Street)
	if err != nil {
		return nil, err
	}

	asOf := input.AsOf
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	state := strings.ToUpper(input.Destination.State)

	cacheKey := CacheKey(state, input.Destination.Zip, addr.StreetName(), addr.HouseNumber(), input.Amount)
	if cached := s.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	if result := s.tryLocal(ctx, input.Amount, state, input.Destination.Zip, addr, asOf); result != nil {
		s.cacheSet(ctx, cacheKey, result)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if result := s.tryProviders(ctx, input); result != nil {
		s.cacheSet(ctx, cacheKey, result)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return s.fallbackDefault(input.Amount, state), nil
}

// tryLocal runs the normalizer/lookup/aggregation path. It succeeds only if
// a non-empty jurisdiction set resolves and at least one active rate exists;
// a data gap returns nil so the orchestrator advances.
func (s *CalculatorService) tryLocal(ctx context.Context, amount decimal.Decimal, state, zip string, addr valueobject.CanonicalAddress, asOf time.Time) *tax.TaxCalculationResult {
	set, err := s.resolver.Lookup(ctx, tax.LookupQuery{
		State:       state,
		Zip:         zip,
		HouseNumber: addr.HouseNumber(),
		Street:      addr.StreetName(),
		AsOf:        asOf,
	})
	if err != nil {
		if !errors.Is(err, tax.ErrJurisdictionNotFound) && !errors.Is(err, tax.ErrQuarterNotLoaded) && ctx.Err() == nil {
			s.logger.Warn("local jurisdiction lookup failed", zap.Error(err))
		}
		return nil
	}

	rates, err := s.rates.ActiveRates(ctx, set.IDs(), asOf)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("active rate fetch failed", zap.Error(err))
		}
		return nil
	}
	if len(rates) == 0 {
		// Jurisdictions resolved but no rate data: treated exactly like a
		// lookup miss so providers get a chance.
		s.logger.Debug("rate data missing for resolved jurisdictions",
			zap.String("state", state), zap.String("zip", zip))
		return nil
	}

	result := tax.Aggregate(amount, rates)
	return &result
}

// tryProviders walks the provider list in priority order. Each call is
// bounded by the per-provider timeout; any error is logged and the next
// provider is tried. No provider is retried within one calculation.
func (s *CalculatorService) tryProviders(ctx context.Context, input CalculateTaxInput) *tax.TaxCalculationResult {
	req := ProviderRequest{
		Amount:      input.Amount,
		Origin:      s.origin,
		Destination: input.Destination,
		LineItems:   input.LineItems,
	}

	for _, p := range s.providers {
		if ctx.Err() != nil {
			return nil
		}
		callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		providerResult, err := p.Calculate(callCtx, req)
		cancel()
		if err != nil {
			perr := tax.NewProviderError(p.Name(), err)
			s.logger.Warn("tax provider failed, advancing to next strategy",
				zap.String("provider", p.Name()),
				zap.Error(perr),
			)
			continue
		}
		return s.mapProviderResult(p.Name(), input, providerResult)
	}
	return nil
}

// mapProviderResult converts a provider answer into the engine's result
// shape, tolerating missing optional fields.
func (s *CalculatorService) mapProviderResult(name string, input CalculateTaxInput, pr *ProviderTaxResult) *tax.TaxCalculationResult {
	taxAmount := pr.TaxAmount.Round(2)
	rate := pr.Rate
	if rate.IsZero() && input.Amount.IsPositive() && !taxAmount.IsZero() {
		rate = taxAmount.Div(input.Amount).Mul(decimal.NewFromInt(100)).Round(4)
	}

	lines := pr.Breakdown
	if len(lines) == 0 {
		lines = []tax.TaxBreakdownLine{{
			JurisdictionName: name,
			JurisdictionType: tax.JurisdictionTypeState,
			Rate:             rate,
			TaxAmount:        taxAmount,
		}}
	}

	return &tax.TaxCalculationResult{
		Subtotal:            input.Amount,
		TotalTaxAmount:      taxAmount,
		TotalRatePercentage: rate,
		Total:               input.Amount.Add(taxAmount),
		Lines:               lines,
		Source:              tax.CalculationSource(name),
		ComputedAt:          time.Now().UTC(),
	}
}

// fallbackDefault produces the guaranteed last-resort result from the static
// per-state table. An unknown state yields a zero-rate result; the caller
// still gets a usable answer.
func (s *CalculatorService) fallbackDefault(amount decimal.Decimal, state string) *tax.TaxCalculationResult {
	rate, known := s.fallbackRates[state]
	if !known {
		rate = decimal.Zero
	}
	taxAmount := amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)

	s.logger.Warn("serving static fallback tax rate",
		zap.String("state", state),
		zap.String("rate", rate.String()),
		zap.Bool("state_known", known),
	)

	return &tax.TaxCalculationResult{
		Subtotal:            amount,
		TotalTaxAmount:      taxAmount,
		TotalRatePercentage: rate,
		Total:               amount.Add(taxAmount),
		Lines: []tax.TaxBreakdownLine{{
			JurisdictionName: state + " default rate",
			JurisdictionType: tax.JurisdictionTypeState,
			Rate:             rate,
			TaxAmount:        taxAmount,
		}},
		Source:     tax.SourceFallbackDefault,
		ComputedAt: time.Now().UTC(),
	}
}

func (s *CalculatorService) cacheGet(ctx context.Context, key string) *tax.TaxCalculationResult {
	if s.cache == nil {
		return nil
	}
	result, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("result cache read failed", zap.Error(err))
		return nil
	}
	return result
}

func (s *CalculatorService) cacheSet(ctx context.Context, key string, result *tax.TaxCalculationResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.Warn("result cache write failed", zap.Error(err))
	}
}
