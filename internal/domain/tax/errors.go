package tax

import "fmt"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors. ErrJurisdictionNotFound and ErrRateDataMissing are
// local-data gaps, not failures: callers must treat them as "local data
// insufficient" and fall back to external providers.
var (
	ErrJurisdictionNotFound = NewDomainError("JURISDICTION_NOT_FOUND", "no jurisdiction matches the delivery address")
	ErrRateDataMissing      = NewDomainError("RATE_DATA_MISSING", "no active rate exists for the matched jurisdictions")
	ErrQuarterNotLoaded     = NewDomainError("QUARTER_NOT_LOADED", "no imported quarter covers the requested date")
)

// ProviderError wraps a single external provider's failure (network, auth or
// malformed response). It is caught and logged by the orchestrator, which
// advances to the next provider; it is never propagated as fatal.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps a provider failure
func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Err: err}
}
