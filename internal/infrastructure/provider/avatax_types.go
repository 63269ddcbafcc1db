package provider

import "github.com/shopspring/decimal"

// avataxAddress is the AvaTax address shape
type avataxAddress struct {
	Line1      string `json:"line1,omitempty"`
	City       string `json:"city,omitempty"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// avataxLine is one sale line in a transaction create request
type avataxLine struct {
	Number      string          `json:"number"`
	Amount      decimal.Decimal `json:"amount"`
	Quantity    int             `json:"quantity,omitempty"`
	Description string          `json:"description,omitempty"`
}

// avataxCreateRequest is the body of /api/v2/transactions/create
type avataxCreateRequest struct {
	Type         string `json:"type"`
	CompanyCode  string `json:"companyCode,omitempty"`
	Date         string `json:"date"`
	CustomerCode string `json:"customerCode"`
	Addresses    struct {
		ShipFrom *avataxAddress `json:"shipFrom,omitempty"`
		ShipTo   *avataxAddress `json:"shipTo"`
	} `json:"addresses"`
	Lines []avataxLine `json:"lines"`
}

// avataxSummary is one jurisdiction line of the response tax summary.
// Fields the API omits for a jurisdiction stay zero-valued.
type avataxSummary struct {
	JurisName string           `json:"jurisName"`
	JurisType string           `json:"jurisType"`
	Rate      *decimal.Decimal `json:"rate"`
	Tax       *decimal.Decimal `json:"tax"`
}

// avataxCreateResponse is the subset of the transaction model the engine maps
type avataxCreateResponse struct {
	TotalAmount   *decimal.Decimal `json:"totalAmount"`
	TotalTax      *decimal.Decimal `json:"totalTax"`
	EffectiveRate *decimal.Decimal `json:"effectiveRate"`
	Summary       []avataxSummary  `json:"summary"`
}

// avataxErrorResponse is the API error envelope
type avataxErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
