// Package models holds the persistence models of the audit database.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// AddressRangeModel is the persistence model for an imported address range
// row. Rows are immutable once written; a re-import of a quarter replaces
// that quarter's rows wholesale.
type AddressRangeModel struct {
	ID          uint    `gorm:"primaryKey;autoIncrement"`
	Quarter     string  `gorm:"type:varchar(8);not null;index:idx_ranges_quarter"`
	State       string  `gorm:"type:varchar(2);not null;index:idx_ranges_addr,priority:1"`
	Zip         string  `gorm:"type:varchar(5);not null;index:idx_ranges_addr,priority:2"`
	Street      string  `gorm:"type:varchar(100);not null;index:idx_ranges_addr,priority:3"`
	AddressFrom int     `gorm:"not null"`
	AddressTo   int     `gorm:"not null"`
	CountyID    *string `gorm:"type:varchar(20)"`
	CityID      *string `gorm:"type:varchar(20)"`
	Transit1ID  *string `gorm:"type:varchar(20)"`
	Transit2ID  *string `gorm:"type:varchar(20)"`
	SPD1ID      *string `gorm:"type:varchar(20)"`
	SPD2ID      *string `gorm:"type:varchar(20)"`
	SPD3ID      *string `gorm:"type:varchar(20)"`
	SPD4ID      *string `gorm:"type:varchar(20)"`
	ImportSeq   int64   `gorm:"not null"`
	CreatedAt   time.Time
}

// TableName returns the table name for GORM
func (AddressRangeModel) TableName() string {
	return "address_ranges"
}

// ToDomain converts the persistence model to a domain record
func (m *AddressRangeModel) ToDomain() (tax.AddressRangeRecord, error) {
	quarter, err := tax.ParseQuarter(m.Quarter)
	if err != nil {
		return tax.AddressRangeRecord{}, err
	}
	return tax.AddressRangeRecord{
		State:       m.State,
		Zip:         m.Zip,
		Street:      m.Street,
		AddressFrom: m.AddressFrom,
		AddressTo:   m.AddressTo,
		County:      taidFromString(m.CountyID),
		City:        taidFromString(m.CityID),
		Transit1:    taidFromString(m.Transit1ID),
		Transit2:    taidFromString(m.Transit2ID),
		SPD1:        taidFromString(m.SPD1ID),
		SPD2:        taidFromString(m.SPD2ID),
		SPD3:        taidFromString(m.SPD3ID),
		SPD4:        taidFromString(m.SPD4ID),
		Quarter:     quarter,
		ImportSeq:   m.ImportSeq,
	}, nil
}

// AddressRangeModelFromDomain converts a domain record to its persistence model
func AddressRangeModelFromDomain(rec tax.AddressRangeRecord) AddressRangeModel {
	return AddressRangeModel{
		Quarter:     rec.Quarter.String(),
		State:       rec.State,
		Zip:         rec.Zip,
		Street:      rec.Street,
		AddressFrom: rec.AddressFrom,
		AddressTo:   rec.AddressTo,
		CountyID:    taidToString(rec.County),
		CityID:      taidToString(rec.City),
		Transit1ID:  taidToString(rec.Transit1),
		Transit2ID:  taidToString(rec.Transit2),
		SPD1ID:      taidToString(rec.SPD1),
		SPD2ID:      taidToString(rec.SPD2),
		SPD3ID:      taidToString(rec.SPD3),
		SPD4ID:      taidToString(rec.SPD4),
		ImportSeq:   rec.ImportSeq,
	}
}

// JurisdictionModel is the persistence model for jurisdiction reference data
type JurisdictionModel struct {
	ID        string `gorm:"type:varchar(20);primaryKey"`
	Name      string `gorm:"type:varchar(100);not null"`
	Type      string `gorm:"type:varchar(30);not null"`
	Code      string `gorm:"type:varchar(20)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (JurisdictionModel) TableName() string {
	return "jurisdictions"
}

// ToDomain converts the persistence model to domain reference data
func (m *JurisdictionModel) ToDomain() tax.Jurisdiction {
	return tax.Jurisdiction{
		ID:   tax.TAID(m.ID),
		Name: m.Name,
		Type: tax.JurisdictionType(m.Type),
		Code: m.Code,
	}
}

// JurisdictionModelFromDomain converts domain reference data to its model
func JurisdictionModelFromDomain(j tax.Jurisdiction) JurisdictionModel {
	return JurisdictionModel{
		ID:   string(j.ID),
		Name: j.Name,
		Type: string(j.Type),
		Code: j.Code,
	}
}

// TaxRateModel is the persistence model for an effective-dated rate record
type TaxRateModel struct {
	ID             uint            `gorm:"primaryKey;autoIncrement"`
	JurisdictionID string          `gorm:"type:varchar(20);not null;index:idx_rates_jurisdiction"`
	Percentage     decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	FlatFee        decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	EffectiveDate  time.Time       `gorm:"not null"`
	ExpirationDate *time.Time
	Priority       int `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName returns the table name for GORM
func (TaxRateModel) TableName() string {
	return "tax_rates"
}

// ToDomain converts the persistence model to a domain rate
func (m *TaxRateModel) ToDomain() tax.TaxRate {
	return tax.TaxRate{
		JurisdictionID: tax.TAID(m.JurisdictionID),
		Percentage:     m.Percentage,
		FlatFee:        m.FlatFee,
		EffectiveDate:  m.EffectiveDate,
		ExpirationDate: m.ExpirationDate,
		Priority:       m.Priority,
	}
}

// TaxRateModelFromDomain converts a domain rate to its persistence model
func TaxRateModelFromDomain(r tax.TaxRate) TaxRateModel {
	return TaxRateModel{
		JurisdictionID: string(r.JurisdictionID),
		Percentage:     r.Percentage,
		FlatFee:        r.FlatFee,
		EffectiveDate:  r.EffectiveDate,
		ExpirationDate: r.ExpirationDate,
		Priority:       r.Priority,
	}
}

// ImportHistoryModel records one quarterly import run for audit
type ImportHistoryModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Quarter       string    `gorm:"type:varchar(8);not null;index:idx_import_history_quarter"`
	Counties      int       `gorm:"not null;default:0"`
	CountiesOK    int       `gorm:"not null;default:0"`
	RowsImported  int       `gorm:"not null;default:0"`
	RowsSkipped   int       `gorm:"not null;default:0"`
	RatesImported int       `gorm:"not null;default:0"`
	ErrorDetails  string    `gorm:"type:text"`
	StartedAt     time.Time `gorm:"not null"`
	FinishedAt    *time.Time
}

// TableName returns the table name for GORM
func (ImportHistoryModel) TableName() string {
	return "import_histories"
}

func taidFromString(s *string) *tax.TAID {
	if s == nil || *s == "" {
		return nil
	}
	id := tax.TAID(*s)
	return &id
}

func taidToString(id *tax.TAID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}
