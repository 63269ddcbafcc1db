package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	apptax "github.com/msphost/taxengine/internal/application/tax"
	"github.com/msphost/taxengine/internal/domain/tax"
)

// AvaTaxAdapter implements the Provider interface over the Avalara AvaTax
// REST API. AvaTax returns a per-jurisdiction tax summary, which maps
// directly onto the engine's breakdown lines.
type AvaTaxAdapter struct {
	config     *AvaTaxConfig
	httpClient *http.Client
}

// NewAvaTaxAdapter creates a new AvaTax adapter
func NewAvaTaxAdapter(config *AvaTaxConfig) (*AvaTaxAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &AvaTaxAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name identifies the provider in logs and result sources
func (a *AvaTaxAdapter) Name() string {
	return "avatax"
}

// Calculate creates a sales-order estimate and maps the response summary
// into the engine's result shape. Missing optional response fields are
// tolerated; a summary-less response still yields a usable total.
func (a *AvaTaxAdapter) Calculate(ctx context.Context, req apptax.ProviderRequest) (*apptax.ProviderTaxResult, error) {
	body := a.buildCreateRequest(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("avatax: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.apiBaseURL()+avataxCreateTransaction, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("avatax: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+a.basicAuth())

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("avatax: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("avatax: failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var apiErr avataxErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, fmt.Errorf("avatax: API error %s: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("avatax: unexpected status %d", resp.StatusCode)
	}

	var created avataxCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("avatax: failed to parse response: %w", err)
	}

	return a.mapResponse(&created), nil
}

// buildCreateRequest assembles a SalesOrder (estimate, uncommitted) request
func (a *AvaTaxAdapter) buildCreateRequest(req apptax.ProviderRequest) *avataxCreateRequest {
	body := &avataxCreateRequest{
		Type:         "SalesOrder",
		CompanyCode:  a.config.CompanyCode,
		Date:         time.Now().UTC().Format("2006-01-02"),
		CustomerCode: "taxengine",
	}
	if req.Origin.State != "" {
		body.Addresses.ShipFrom = &avataxAddress{
			Line1:      req.Origin.Street,
			City:       req.Origin.City,
			Region:     req.Origin.State,
			PostalCode: req.Origin.Zip,
			Country:    "US",
		}
	}
	body.Addresses.ShipTo = &avataxAddress{
		Line1:      req.Destination.Street,
		City:       req.Destination.City,
		Region:     req.Destination.State,
		PostalCode: req.Destination.Zip,
		Country:    "US",
	}

	if len(req.LineItems) > 0 {
		for i, item := range req.LineItems {
			body.Lines = append(body.Lines, avataxLine{
				Number:      strconv.Itoa(i + 1),
				Amount:      item.Amount,
				Quantity:    item.Quantity,
				Description: item.Description,
			})
		}
	} else {
		body.Lines = []avataxLine{{Number: "1", Amount: req.Amount, Quantity: 1}}
	}
	return body
}

// mapResponse converts the AvaTax transaction model into a ProviderTaxResult.
// AvaTax expresses rates as fractions (0.0625); the engine uses percentages.
func (a *AvaTaxAdapter) mapResponse(created *avataxCreateResponse) *apptax.ProviderTaxResult {
	result := &apptax.ProviderTaxResult{}
	if created.TotalTax != nil {
		result.TaxAmount = *created.TotalTax
	}
	if created.EffectiveRate != nil {
		result.Rate = created.EffectiveRate.Mul(decimal.NewFromInt(100))
	}

	for _, s := range created.Summary {
		line := tax.TaxBreakdownLine{
			JurisdictionName: s.JurisName,
			JurisdictionType: mapAvaTaxJurisType(s.JurisType),
		}
		if s.Rate != nil {
			line.Rate = s.Rate.Mul(decimal.NewFromInt(100))
		}
		if s.Tax != nil {
			line.TaxAmount = *s.Tax
		}
		result.Breakdown = append(result.Breakdown, line)
	}

	if result.Rate.IsZero() {
		for _, line := range result.Breakdown {
			result.Rate = result.Rate.Add(line.Rate)
		}
	}
	return result
}

// mapAvaTaxJurisType translates AvaTax jurisdiction type codes
func mapAvaTaxJurisType(jurisType string) tax.JurisdictionType {
	switch jurisType {
	case "State", "STA":
		return tax.JurisdictionTypeState
	case "County", "CTY":
		return tax.JurisdictionTypeCounty
	case "City", "CIT":
		return tax.JurisdictionTypeCity
	case "Special", "STJ":
		return tax.JurisdictionTypeSpecialPurposeDistrict
	default:
		return tax.JurisdictionTypeSpecialPurposeDistrict
	}
}

// basicAuth builds the AvaTax account/license basic auth header value
func (a *AvaTaxAdapter) basicAuth() string {
	return base64.StdEncoding.EncodeToString([]byte(a.config.AccountID + ":" + a.config.LicenseKey))
}

// Ensure AvaTaxAdapter implements the Provider interface
var _ apptax.Provider = (*AvaTaxAdapter)(nil)
