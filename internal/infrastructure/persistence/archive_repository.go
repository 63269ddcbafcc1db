package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/infrastructure/persistence/models"
)

// bulkInsertBatchSize bounds the rows per INSERT during quarter imports
const bulkInsertBatchSize = 500

// ArchiveRepository persists imported quarters, rates and import history.
// Writes happen only during ingestion; reads happen at startup to rebuild
// the in-memory index and on demand for audit queries.
type ArchiveRepository struct {
	db *gorm.DB
}

// NewArchiveRepository creates a repository over an open database
func NewArchiveRepository(db *Database) *ArchiveRepository {
	return &ArchiveRepository{db: db.DB}
}

// ReplaceQuarterRanges replaces a quarter's address range rows in a single
// transaction. Re-running an import therefore yields identical row counts
// instead of appending duplicates.
func (r *ArchiveRepository) ReplaceQuarterRanges(ctx context.Context, quarter tax.Quarter, records []tax.AddressRangeRecord) error {
	rows := make([]models.AddressRangeModel, 0, len(records))
	for _, rec := range records {
		rows = append(rows, models.AddressRangeModelFromDomain(rec))
	}

	return r.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Where("quarter = ?", quarter.String()).Delete(&models.AddressRangeModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear quarter %s: %w", quarter, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := txn.CreateInBatches(rows, bulkInsertBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert quarter %s rows: %w", quarter, err)
		}
		return nil
	})
}

// LoadQuarterRanges returns all range rows stored for a quarter
func (r *ArchiveRepository) LoadQuarterRanges(ctx context.Context, quarter tax.Quarter) ([]tax.AddressRangeRecord, error) {
	var rows []models.AddressRangeModel
	if err := r.db.WithContext(ctx).
		Where("quarter = ?", quarter.String()).
		Order("import_seq").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load quarter %s: %w", quarter, err)
	}

	records := make([]tax.AddressRangeRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ListQuarters returns the quarters with stored range rows, oldest first
func (r *ArchiveRepository) ListQuarters(ctx context.Context) ([]tax.Quarter, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&models.AddressRangeModel{}).
		Distinct("quarter").
		Order("quarter").
		Pluck("quarter", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list quarters: %w", err)
	}

	quarters := make([]tax.Quarter, 0, len(ids))
	for _, id := range ids {
		q, err := tax.ParseQuarter(id)
		if err != nil {
			return nil, err
		}
		quarters = append(quarters, q)
	}
	return quarters, nil
}

// SaveJurisdictions upserts jurisdiction reference data
func (r *ArchiveRepository) SaveJurisdictions(ctx context.Context, jurisdictions []tax.Jurisdiction) error {
	for _, j := range jurisdictions {
		row := models.JurisdictionModelFromDomain(j)
		if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
			return fmt.Errorf("failed to save jurisdiction %s: %w", j.ID, err)
		}
	}
	return nil
}

// LoadJurisdictions returns all stored jurisdiction reference data
func (r *ArchiveRepository) LoadJurisdictions(ctx context.Context) ([]tax.Jurisdiction, error) {
	var rows []models.JurisdictionModel
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load jurisdictions: %w", err)
	}

	jurisdictions := make([]tax.Jurisdiction, 0, len(rows))
	for i := range rows {
		jurisdictions = append(jurisdictions, rows[i].ToDomain())
	}
	return jurisdictions, nil
}

// ReplaceRates replaces a jurisdiction's rate history with the given rows.
// The in-memory store owns expiry semantics; the archive stores the outcome.
func (r *ArchiveRepository) ReplaceRates(ctx context.Context, jurisdictionID tax.TAID, rates []tax.TaxRate) error {
	rows := make([]models.TaxRateModel, 0, len(rates))
	for _, rate := range rates {
		rows = append(rows, models.TaxRateModelFromDomain(rate))
	}

	return r.db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		if err := txn.Where("jurisdiction_id = ?", string(jurisdictionID)).Delete(&models.TaxRateModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear rates for %s: %w", jurisdictionID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := txn.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert rates for %s: %w", jurisdictionID, err)
		}
		return nil
	})
}

// LoadRates returns all stored rate rows grouped by jurisdiction
func (r *ArchiveRepository) LoadRates(ctx context.Context) (map[tax.TAID][]tax.TaxRate, error) {
	var rows []models.TaxRateModel
	if err := r.db.WithContext(ctx).Order("jurisdiction_id, effective_date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load rates: %w", err)
	}

	rates := make(map[tax.TAID][]tax.TaxRate)
	for i := range rows {
		rate := rows[i].ToDomain()
		rates[rate.JurisdictionID] = append(rates[rate.JurisdictionID], rate)
	}
	return rates, nil
}

// SaveImportHistory records one import run for audit
func (r *ArchiveRepository) SaveImportHistory(ctx context.Context, row *models.ImportHistoryModel) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("failed to save import history: %w", err)
	}
	return nil
}

// ListImportHistory returns import runs newest first. A zero quarter lists
// runs across all quarters.
func (r *ArchiveRepository) ListImportHistory(ctx context.Context, quarter tax.Quarter, limit int) ([]models.ImportHistoryModel, error) {
	if limit <= 0 {
		limit = 20
	}
	query := r.db.WithContext(ctx)
	if !quarter.IsZero() {
		query = query.Where("quarter = ?", quarter.String())
	}
	var rows []models.ImportHistoryModel
	if err := query.
		Order("started_at desc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list import history: %w", err)
	}
	return rows, nil
}

// PruneQuartersBefore deletes audit rows for quarters older than the given
// one. Retention is an operator decision; nothing calls this automatically.
func (r *ArchiveRepository) PruneQuartersBefore(ctx context.Context, quarter tax.Quarter) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("quarter < ?", quarter.String()).
		Delete(&models.AddressRangeModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune quarters: %w", res.Error)
	}
	return res.RowsAffected, nil
}
