package taximport

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/domain/tax/valueobject"
)

// Government address range file columns. TAID columns for city, transit and
// SPD slots are frequently empty; an empty slot is valid.
const (
	colFrom   = "FROM"
	colTo     = "TO"
	colStreet = "STREET"
	colZip    = "ZIP"

	colCountyTAID   = "COUNTY_TAID"
	colCityTAID     = "CITY_TAID"
	colTransit1TAID = "TRANSIT1_TAID"
	colTransit2TAID = "TRANSIT2_TAID"
	colSPD1TAID     = "SPD1_TAID"
	colSPD2TAID     = "SPD2_TAID"
	colSPD3TAID     = "SPD3_TAID"
	colSPD4TAID     = "SPD4_TAID"
)

// requiredRangeColumns are the columns a county file must carry
var requiredRangeColumns = []string{
	colFrom, colTo, colStreet, colZip,
	colCountyTAID, colCityTAID,
	colTransit1TAID, colTransit2TAID,
	colSPD1TAID, colSPD2TAID, colSPD3TAID, colSPD4TAID,
}

// maxCountyFileSize bounds a decompressed county file. The largest observed
// county files run to hundreds of thousands of rows; 256 MiB is far above
// any legitimate file.
const maxCountyFileSize = 256 << 20

// ExtractCountyCSV opens a per-county ZIP container and returns the CSV
// payload inside it. Containers hold a single CSV entry per the government
// schema; the first .csv (or .txt) entry wins.
func ExtractCountyCSV(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidZip, err)
	}

	for _, f := range zr.File {
		name := strings.ToLower(f.Name)
		if !strings.HasSuffix(name, ".csv") && !strings.HasSuffix(name, ".txt") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open ZIP entry %s: %w", f.Name, err)
		}
		payload, err := io.ReadAll(io.LimitReader(rc, maxCountyFileSize))
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read ZIP entry %s: %w", f.Name, err)
		}
		return payload, nil
	}
	return nil, ErrNoCSVEntry
}

// RangeFileResult is the outcome of parsing one county address file
type RangeFileResult struct {
	Records []tax.AddressRangeRecord
	Errors  *ErrorCollection
	// RowsRead counts data rows seen, valid or not
	RowsRead int
}

// ParseRangeFile parses a county address CSV into range records. The state
// comes from the import source metadata, not the file. Each valid record is
// tagged with the quarter and a fresh import sequence from seq, so rows
// imported later win slot conflicts. Invalid rows are collected and skipped,
// never aborting the file.
func ParseRangeFile(data []byte, state string, quarter tax.Quarter, seq func() int64) (*RangeFileResult, error) {
	parser, err := ParseFromBytes(data)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(requiredRangeColumns); err != nil {
		return nil, err
	}

	result := &RangeFileResult{Errors: NewErrorCollection(100)}
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

		rec, rowErr := mapRangeRow(row, state, quarter)
		if rowErr != nil {
			result.Errors.Add(*rowErr)
			continue
		}
		rec.ImportSeq = seq()
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

// mapRangeRow converts one CSV row into a validated AddressRangeRecord
func mapRangeRow(row *Row, state string, quarter tax.Quarter) (tax.AddressRangeRecord, *RowError) {
	from, err := strconv.Atoi(row.Get(colFrom))
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, colFrom, ErrCodeImportInvalidType, "expected integer", row.Get(colFrom))
		return tax.AddressRangeRecord{}, &e
	}
	to, err := strconv.Atoi(row.Get(colTo))
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, colTo, ErrCodeImportInvalidType, "expected integer", row.Get(colTo))
		return tax.AddressRangeRecord{}, &e
	}

	street, err := valueobject.NormalizeStreet(row.Get(colStreet))
	if err != nil {
		e := NewRowErrorWithValue(row.LineNumber, colStreet, ErrCodeImportRequiredField, "street name is required", row.Get(colStreet))
		return tax.AddressRangeRecord{}, &e
	}

	rec := tax.AddressRangeRecord{
		State:       strings.ToUpper(state),
		Zip:         row.Get(colZip),
		Street:      street,
		AddressFrom: from,
		AddressTo:   to,
		County:      taidPtr(row.Get(colCountyTAID)),
		City:        taidPtr(row.Get(colCityTAID)),
		Transit1:    taidPtr(row.Get(colTransit1TAID)),
		Transit2:    taidPtr(row.Get(colTransit2TAID)),
		SPD1:        taidPtr(row.Get(colSPD1TAID)),
		SPD2:        taidPtr(row.Get(colSPD2TAID)),
		SPD3:        taidPtr(row.Get(colSPD3TAID)),
		SPD4:        taidPtr(row.Get(colSPD4TAID)),
		Quarter:     quarter,
	}
	if err := rec.Validate(); err != nil {
		e := NewRowError(row.LineNumber, "", ErrCodeImportInvalidRange, err.Error())
		return tax.AddressRangeRecord{}, &e
	}
	return rec, nil
}

// taidPtr converts an optional TAID column to a nullable slot value
func taidPtr(s string) *tax.TAID {
	if s == "" {
		return nil
	}
	id := tax.TAID(s)
	return &id
}
