package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apptax "github.com/msphost/taxengine/internal/application/tax"
)

const (
	taxcloudAPIBaseURL = "https://api.taxcloud.net/1.0/TaxCloud"
	taxcloudLookupPath = "/Lookup"
)

// TaxCloudConfig contains configuration for the TaxCloud Lookup API.
// TaxCloud authenticates with an API login ID / key pair carried in the
// request body rather than a header.
type TaxCloudConfig struct {
	APILoginID string
	APIKey     string
	// BaseURL overrides the API endpoint; used in tests
	BaseURL string
}

// Errors for configuration validation
var (
	ErrTaxCloudMissingLoginID = errors.New("taxcloud: missing API login ID")
	ErrTaxCloudMissingAPIKey  = errors.New("taxcloud: missing API key")
)

// Validate validates the configuration
func (c *TaxCloudConfig) Validate() error {
	if c.APILoginID == "" {
		return ErrTaxCloudMissingLoginID
	}
	if c.APIKey == "" {
		return ErrTaxCloudMissingAPIKey
	}
	return nil
}

func (c *TaxCloudConfig) apiBaseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return taxcloudAPIBaseURL
}

// taxcloudAddress is the TaxCloud address shape
type taxcloudAddress struct {
	Address1 string `json:"Address1"`
	City     string `json:"City"`
	State    string `json:"State"`
	Zip5     string `json:"Zip5"`
}

// taxcloudCartItem is one line of a Lookup request
type taxcloudCartItem struct {
	Index  int             `json:"Index"`
	ItemID string          `json:"ItemID"`
	TIC    int             `json:"TIC"`
	Price  decimal.Decimal `json:"Price"`
	Qty    int             `json:"Qty"`
}

// taxcloudLookupRequest is the body of /Lookup
type taxcloudLookupRequest struct {
	APILoginID  string             `json:"apiLoginID"`
	APIKey      string             `json:"apiKey"`
	CustomerID  string             `json:"customerID"`
	CartID      string             `json:"cartID"`
	CartItems   []taxcloudCartItem `json:"cartItems"`
	Origin      *taxcloudAddress   `json:"origin,omitempty"`
	Destination taxcloudAddress    `json:"destination"`
}

// taxcloudLookupResponse is the Lookup response envelope. ResponseType 3 is
// success; Messages carries errors otherwise.
type taxcloudLookupResponse struct {
	CartItemsResponse []struct {
		CartItemIndex int              `json:"CartItemIndex"`
		TaxAmount     *decimal.Decimal `json:"TaxAmount"`
	} `json:"CartItemsResponse"`
	ResponseType int `json:"ResponseType"`
	Messages     []struct {
		Message string `json:"Message"`
	} `json:"Messages"`
}

// TaxCloudAdapter implements the Provider interface over the TaxCloud Lookup
// API. TaxCloud returns per-item tax amounts without a jurisdiction
// breakdown, so the orchestrator synthesizes a single line from the total.
type TaxCloudAdapter struct {
	config     *TaxCloudConfig
	httpClient *http.Client
}

// NewTaxCloudAdapter creates a new TaxCloud adapter
func NewTaxCloudAdapter(config *TaxCloudConfig) (*TaxCloudAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &TaxCloudAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name identifies the provider in logs and result sources
func (a *TaxCloudAdapter) Name() string {
	return "taxcloud"
}

// Calculate performs a cart Lookup and sums the per-item tax amounts.
func (a *TaxCloudAdapter) Calculate(ctx context.Context, req apptax.ProviderRequest) (*apptax.ProviderTaxResult, error) {
	body := a.buildLookupRequest(req)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("taxcloud: failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.apiBaseURL()+taxcloudLookupPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("taxcloud: failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("taxcloud: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("taxcloud: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("taxcloud: unexpected status %d", resp.StatusCode)
	}

	var lookup taxcloudLookupResponse
	if err := json.Unmarshal(respBody, &lookup); err != nil {
		return nil, fmt.Errorf("taxcloud: failed to parse response: %w", err)
	}

	if lookup.ResponseType != 3 {
		msg := "lookup rejected"
		if len(lookup.Messages) > 0 {
			msg = lookup.Messages[0].Message
		}
		return nil, fmt.Errorf("taxcloud: %s", msg)
	}

	total := decimal.Zero
	for _, item := range lookup.CartItemsResponse {
		if item.TaxAmount != nil {
			total = total.Add(*item.TaxAmount)
		}
	}

	result := &apptax.ProviderTaxResult{TaxAmount: total}
	if req.Amount.IsPositive() {
		result.Rate = total.Div(req.Amount).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return result, nil
}

// buildLookupRequest assembles a single-use cart for the quote
func (a *TaxCloudAdapter) buildLookupRequest(req apptax.ProviderRequest) *taxcloudLookupRequest {
	body := &taxcloudLookupRequest{
		APILoginID: a.config.APILoginID,
		APIKey:     a.config.APIKey,
		CustomerID: "taxengine",
		CartID:     uuid.NewString(),
		Destination: taxcloudAddress{
			Address1: req.Destination.Street,
			City:     req.Destination.City,
			State:    req.Destination.State,
			Zip5:     req.Destination.Zip,
		},
	}
	if req.Origin.State != "" {
		body.Origin = &taxcloudAddress{
			Address1: req.Origin.Street,
			City:     req.Origin.City,
			State:    req.Origin.State,
			Zip5:     req.Origin.Zip,
		}
	}

	if len(req.LineItems) > 0 {
		for i, item := range req.LineItems {
			qty := item.Quantity
			if qty <= 0 {
				qty = 1
			}
			body.CartItems = append(body.CartItems, taxcloudCartItem{
				Index:  i,
				ItemID: fmt.Sprintf("line-%d", i+1),
				Price:  item.Amount,
				Qty:    qty,
			})
		}
	} else {
		body.CartItems = []taxcloudCartItem{{Index: 0, ItemID: "line-1", Price: req.Amount, Qty: 1}}
	}
	return body
}

// Ensure TaxCloudAdapter implements the Provider interface
var _ apptax.Provider = (*TaxCloudAdapter)(nil)
