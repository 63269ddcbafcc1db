package taximport

import (
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/msphost/taxengine/internal/domain/tax"
)

// Rate file columns. TYPE, NAME and CODE describe the jurisdiction; RATE is
// a percentage. FLAT_FEE and EXPIRATION_DATE are optional.
const (
	colTAID          = "TAID"
	colType          = "TYPE"
	colName          = "NAME"
	colCode          = "CODE"
	colRate          = "RATE"
	colFlatFee       = "FLAT_FEE"
	colEffectiveDate = "EFFECTIVE_DATE"
)

// requiredRateColumns are the columns the rate file must carry
var requiredRateColumns = []string{colTAID, colType, colName, colRate, colEffectiveDate}

// rateDateLayout is the date format of the government rate file
const rateDateLayout = "2006-01-02"

// RateRow is one parsed rate file row: the jurisdiction's reference data and
// its new effective-dated rate.
type RateRow struct {
	Jurisdiction tax.Jurisdiction
	Rate         tax.TaxRate
}

// RateFileResult is the outcome of parsing the quarterly rate file
type RateFileResult struct {
	Rows     []RateRow
	Errors   *ErrorCollection
	RowsRead int
}

// ParseRateFile parses the quarterly rate CSV. Invalid rows are collected
// and skipped without aborting the file.
func ParseRateFile(data []byte) (*RateFileResult, error) {
	parser, err := ParseFromBytes(data)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(requiredRateColumns); err != nil {
		return nil, err
	}

	result := &RateFileResult{Errors: NewErrorCollection(100)}
	for {
		row, err := parser.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors.Add(NewRowError(parser.currentRow, "", ErrCodeImportMalformedRow, err.Error()))
			continue
		}
		if row.IsEmpty() {
			continue
		}
		result.RowsRead++

		parsed, rowErr := mapRateRow(row)
		if rowErr != nil {
			result.Errors.Add(*rowErr)
			continue
		}
		result.Rows = append(result.Rows, parsed)
	}
	return result, nil
}

// mapRateRow converts one CSV row into a validated RateRow
func mapRateRow(row *Row) (RateRow, *RowError) {
	id := tax.TAID(row.Get(colTAID))
	if id == "" {
		e := NewRowError(row.LineNumber, colTAID, ErrCodeImportRequiredField, "jurisdiction id is required")
		return RateRow{}, &e
	}

	jurisType := tax.JurisdictionType(row.Get(colType))
	if !jurisType.IsValid() {
		e := NewRowErrorWithValue(row.LineNumber, colType, ErrCodeImportInvalidType, "unknown jurisdiction type", row.Get(colType))
		return RateRow{}, &e
	}

	rate, err := decimal.NewFromString(row.Get(colRate))
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, colRate, ErrCodeImportInvalidType, "expected decimal percentage", row.Get(colRate))
		return RateRow{}, &e
	}

	flatFee := decimal.Zero
	if raw := row.Get(colFlatFee); raw != "" {
		flatFee, err = decimal.NewFromString(raw)
		if err != nil {
			e := NewRowErrorWithValue(row.LineNumber, colFlatFee, ErrCodeImportInvalidType, "expected decimal fee", raw)
			return RateRow{}, &e
		}
	}

	effective, err := time.ParseInLocation(rateDateLayout, row.Get(colEffectiveDate), time.UTC)
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, colEffectiveDate, ErrCodeImportInvalidType, "expected YYYY-MM-DD date", row.Get(colEffectiveDate))
		return RateRow{}, &e
	}

	parsed := RateRow{
		Jurisdiction: tax.Jurisdiction{
			ID:   id,
			Name: row.Get(colName),
			Type: jurisType,
			Code: row.Get(colCode),
		},
		Rate: tax.TaxRate{
			JurisdictionID: id,
			Percentage:     rate,
			FlatFee:        flatFee,
			EffectiveDate:  effective,
		},
	}
	if err := parsed.Rate.Validate(); err != nil {
		e := NewRowError(row.LineNumber, "", ErrCodeImportInvalidRange, err.Error())
		return RateRow{}, &e
	}
	return parsed, nil
}
