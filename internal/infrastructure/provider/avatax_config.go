package provider

import "errors"

const (
	avataxAPIBaseURL        = "https://rest.avatax.com"
	avataxSandboxAPIBaseURL = "https://sandbox-rest.avatax.com"
	avataxCreateTransaction = "/api/v2/transactions/create"
)

// AvaTaxConfig contains configuration for the Avalara AvaTax REST API v2.
type AvaTaxConfig struct {
	// AccountID is the Avalara account number used for basic authentication
	AccountID string
	// LicenseKey is the account license key paired with AccountID
	LicenseKey string
	// CompanyCode selects the company profile transactions are created under
	CompanyCode string
	// IsSandbox routes calls to the Avalara sandbox environment
	IsSandbox bool
	// BaseURL overrides the API endpoint; used in tests
	BaseURL string
}

// Errors for configuration validation
var (
	ErrAvaTaxMissingAccountID  = errors.New("avatax: missing account ID")
	ErrAvaTaxMissingLicenseKey = errors.New("avatax: missing license key")
)

// Validate validates the configuration
func (c *AvaTaxConfig) Validate() error {
	if c.AccountID == "" {
		return ErrAvaTaxMissingAccountID
	}
	if c.LicenseKey == "" {
		return ErrAvaTaxMissingLicenseKey
	}
	return nil
}

// apiBaseURL resolves the endpoint honoring overrides and sandbox mode
func (c *AvaTaxConfig) apiBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.IsSandbox {
		return avataxSandboxAPIBaseURL
	}
	return avataxAPIBaseURL
}
