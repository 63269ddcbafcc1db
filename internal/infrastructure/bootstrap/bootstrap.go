// Package bootstrap assembles the calculation service from loaded
// configuration. Hosting applications call one constructor instead of
// hand-wiring providers, the result cache and fallback rates from the raw
// config sections.
package bootstrap

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apptax "github.com/msphost/taxengine/internal/application/tax"
	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/infrastructure/cache"
	"github.com/msphost/taxengine/internal/infrastructure/config"
	"github.com/msphost/taxengine/internal/infrastructure/provider"
)

// Providers builds the enabled external provider adapters in priority order:
// AvaTax first, then TaxCloud. Disabled providers are skipped; an enabled
// provider with bad credentials fails assembly rather than silently dropping
// a configured tier.
func Providers(cfg config.ProvidersConfig) ([]apptax.Provider, error) {
	var providers []apptax.Provider

	if cfg.AvaTax.Enabled {
		adapter, err := provider.NewAvaTaxAdapter(&provider.AvaTaxConfig{
			AccountID:   cfg.AvaTax.AccountID,
			LicenseKey:  cfg.AvaTax.LicenseKey,
			CompanyCode: cfg.AvaTax.CompanyCode,
			IsSandbox:   cfg.AvaTax.Sandbox,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build avatax provider: %w", err)
		}
		providers = append(providers, adapter)
	}

	if cfg.TaxCloud.Enabled {
		adapter, err := provider.NewTaxCloudAdapter(&provider.TaxCloudConfig{
			APILoginID: cfg.TaxCloud.APILoginID,
			APIKey:     cfg.TaxCloud.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build taxcloud provider: %w", err)
		}
		providers = append(providers, adapter)
	}

	return providers, nil
}

// FallbackRates parses the configured per-state default rates. A rate that
// does not parse as a decimal is skipped with a warning; the state then
// falls back to a zero default rather than failing startup.
func FallbackRates(cfg config.FallbackConfig, logger *zap.Logger) map[string]decimal.Decimal {
	if logger == nil {
		logger = zap.NewNop()
	}
	rates := make(map[string]decimal.Decimal, len(cfg.Rates))
	for state, raw := range cfg.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Warn("unparseable fallback rate skipped",
				zap.String("state", state),
				zap.String("rate", raw),
			)
			continue
		}
		rates[state] = rate
	}
	return rates
}

// ResultCache builds the configured result cache backend. The redis backend
// honors cache.allow_memory_fallback when Redis is unreachable.
func ResultCache(cfg *config.Config, logger *zap.Logger) (apptax.ResultCache, error) {
	factory := cache.NewResultCacheFactory(
		cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		cache.WithLogger(logger),
		cache.WithInMemoryFallback(cfg.Cache.AllowMemoryFallback),
	)
	if cfg.Cache.Backend == "redis" {
		return factory.CreateCache()
	}
	return factory.CreateInMemoryCache(), nil
}

// NewCalculator assembles a ready-to-use CalculatorService from
// configuration: the local resolver and rate repository, provider adapters,
// the result cache, the static fallback table and the seller origin. The
// returned cleanup releases the cache backend.
func NewCalculator(cfg *config.Config, resolver tax.JurisdictionResolver, rates tax.RateRepository, logger *zap.Logger) (*apptax.CalculatorService, func() error, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	providers, err := Providers(cfg.Providers)
	if err != nil {
		return nil, nil, err
	}

	resultCache, err := ResultCache(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() error {
		if closer, ok := resultCache.(io.Closer); ok {
			return closer.Close()
		}
		return nil
	}

	service := apptax.NewCalculatorService(resolver, rates, logger,
		apptax.WithProviders(providers...),
		apptax.WithProviderTimeout(cfg.Providers.Timeout),
		apptax.WithResultCache(resultCache, cfg.Cache.TTL),
		apptax.WithFallbackRates(FallbackRates(cfg.Fallback, logger)),
		apptax.WithOrigin(apptax.DeliveryAddress{
			Street: cfg.Origin.Street,
			City:   cfg.Origin.City,
			State:  cfg.Origin.State,
			Zip:    cfg.Origin.Zip,
		}),
	)
	return service, cleanup, nil
}
