// Package ingestion orchestrates the quarterly government data import: per-
// county address range files and the rate file, staged outside the live
// index and committed with an atomic quarter swap so in-flight lookups never
// observe a half-imported quarter.
package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/infrastructure/taximport"
)

// CountySource is one per-county, per-quarter ZIP container
type CountySource struct {
	County string
	State  string
	Data   []byte
}

// QuarterSources bundles everything published for one quarter
type QuarterSources struct {
	Counties []CountySource
	// RatesCSV is the quarterly rate file; optional when only ranges changed
	RatesCSV []byte
}

// CountyReport is the per-county outcome of an import
type CountyReport struct {
	County       string               `json:"county"`
	State        string               `json:"state"`
	Success      bool                 `json:"success"`
	RowsImported int                  `json:"rows_imported"`
	RowsSkipped  int                  `json:"rows_skipped"`
	Error        string               `json:"error,omitempty"`
	RowErrors    []taximport.RowError `json:"row_errors,omitempty"`
}

// ImportReport summarizes one quarterly import run
type ImportReport struct {
	ID            uuid.UUID            `json:"id"`
	Quarter       tax.Quarter          `json:"quarter"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
	Counties      []CountyReport       `json:"counties"`
	Committed     bool                 `json:"committed"`
	RowsImported  int                  `json:"rows_imported"`
	RowsSkipped   int                  `json:"rows_skipped"`
	RatesImported int                  `json:"rates_imported"`
	RateErrors    []taximport.RowError `json:"rate_errors,omitempty"`
}

// RangeStore is the live index the import commits into
type RangeStore interface {
	NextImportSeq() int64
	ReplaceQuarter(quarter tax.Quarter, records []tax.AddressRangeRecord)
	UpsertJurisdictions(jurisdictions []tax.Jurisdiction)
	UpsertRate(rate tax.TaxRate) error
	RatesFor(id tax.TAID) []tax.TaxRate
}

// Archive is the durable audit store. Optional: a nil archive keeps the
// import in-memory only.
type Archive interface {
	ReplaceQuarterRanges(ctx context.Context, quarter tax.Quarter, records []tax.AddressRangeRecord) error
	SaveJurisdictions(ctx context.Context, jurisdictions []tax.Jurisdiction) error
	ReplaceRates(ctx context.Context, jurisdictionID tax.TAID, rates []tax.TaxRate) error
}

// ImportService runs quarterly imports. Imports are idempotent per quarter:
// rerunning one replaces that quarter's rows rather than appending.
type ImportService struct {
	store   RangeStore
	archive Archive
	logger  *zap.Logger
}

// NewImportService creates an import service. archive may be nil.
func NewImportService(store RangeStore, archive Archive, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{store: store, archive: archive, logger: logger}
}

// ImportQuarter ingests one quarter's files. Per-county failures are
// isolated: a malformed county file is reported and skipped while the rest
// of the batch proceeds. The live index is swapped once, after staging, and
// only when at least one county parsed, so a wholly failed batch cannot
// wipe a previously imported quarter.
func (s *ImportService) ImportQuarter(ctx context.Context, quarterID string, sources QuarterSources) (*ImportReport, error) {
	quarter, err := tax.ParseQuarter(quarterID)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{
		ID:        uuid.New(),
		Quarter:   quarter,
		StartedAt: time.Now().UTC(),
	}

	staged := make([]tax.AddressRangeRecord, 0)
	anySucceeded := false

	for _, county := range sources.Counties {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		countyReport := s.importCounty(county, quarter, &staged)
		if countyReport.Success {
			anySucceeded = true
		}
		report.RowsImported += countyReport.RowsImported
		report.RowsSkipped += countyReport.RowsSkipped
		report.Counties = append(report.Counties, countyReport)
	}

	if anySucceeded {
		s.store.ReplaceQuarter(quarter, staged)
		report.Committed = true

		if s.archive != nil {
			if err := s.archive.ReplaceQuarterRanges(ctx, quarter, staged); err != nil {
				report.FinishedAt = time.Now().UTC()
				return report, fmt.Errorf("quarter %s committed to index but archive write failed: %w", quarter, err)
			}
		}
	} else if len(sources.Counties) > 0 {
		s.logger.Error("no county file parsed, quarter swap skipped",
			zap.String("quarter", quarter.String()),
			zap.Int("counties", len(sources.Counties)),
		)
	}

	if len(sources.RatesCSV) > 0 {
		if err := s.importRates(ctx, sources.RatesCSV, report); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
	}

	report.FinishedAt = time.Now().UTC()
	s.logger.Info("quarter import finished",
		zap.String("quarter", quarter.String()),
		zap.String("report_id", report.ID.String()),
		zap.Int("rows_imported", report.RowsImported),
		zap.Int("rows_skipped", report.RowsSkipped),
		zap.Int("rates_imported", report.RatesImported),
		zap.Bool("committed", report.Committed),
	)
	return report, nil
}

// importCounty parses one county container into the staging slice
func (s *ImportService) importCounty(county CountySource, quarter tax.Quarter, staged *[]tax.AddressRangeRecord) CountyReport {
	report := CountyReport{County: county.County, State: county.State}

	payload, err := taximport.ExtractCountyCSV(county.Data)
	if err != nil {
		report.Error = err.Error()
		s.logger.Error("county container rejected",
			zap.String("county", county.County),
			zap.String("quarter", quarter.String()),
			zap.Error(err),
		)
		return report
	}

	parsed, err := taximport.ParseRangeFile(payload, county.State, quarter, s.store.NextImportSeq)
	if err != nil {
		report.Error = err.Error()
		s.logger.Error("county file rejected",
			zap.String("county", county.County),
			zap.String("quarter", quarter.String()),
			zap.Error(err),
		)
		return report
	}

	report.Success = true
	report.RowsImported = len(parsed.Records)
	report.RowsSkipped = parsed.Errors.TotalCount()
	report.RowErrors = parsed.Errors.Errors()

	if parsed.Errors.HasErrors() {
		s.logger.Warn("county rows skipped during import",
			zap.String("county", county.County),
			zap.String("quarter", quarter.String()),
			zap.Int("skipped", parsed.Errors.TotalCount()),
		)
	}

	*staged = append(*staged, parsed.Records...)
	return report
}

// importRates upserts the quarterly rate file into the store and archive
func (s *ImportService) importRates(ctx context.Context, ratesCSV []byte, report *ImportReport) error {
	parsed, err := taximport.ParseRateFile(ratesCSV)
	if err != nil {
		return fmt.Errorf("rate file rejected: %w", err)
	}
	report.RateErrors = parsed.Errors.Errors()
	report.RowsSkipped += parsed.Errors.TotalCount()

	jurisdictions := make([]tax.Jurisdiction, 0, len(parsed.Rows))
	touched := make(map[tax.TAID]struct{}, len(parsed.Rows))
	for _, row := range parsed.Rows {
		if err := s.store.UpsertRate(row.Rate); err != nil {
			s.logger.Warn("rate row rejected",
				zap.String("jurisdiction_id", string(row.Rate.JurisdictionID)),
				zap.Error(err),
			)
			continue
		}
		jurisdictions = append(jurisdictions, row.Jurisdiction)
		touched[row.Rate.JurisdictionID] = struct{}{}
		report.RatesImported++
	}
	s.store.UpsertJurisdictions(jurisdictions)

	if s.archive != nil {
		if err := s.archive.SaveJurisdictions(ctx, jurisdictions); err != nil {
			return fmt.Errorf("failed to archive jurisdictions: %w", err)
		}
		for id := range touched {
			if err := s.archive.ReplaceRates(ctx, id, s.store.RatesFor(id)); err != nil {
				return fmt.Errorf("failed to archive rates for %s: %w", id, err)
			}
		}
	}
	return nil
}
