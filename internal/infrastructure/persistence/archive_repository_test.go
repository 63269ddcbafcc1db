package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/infrastructure/config"
	"github.com/msphost/taxengine/internal/infrastructure/persistence/models"
)

func testDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "taxengine_test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testTAID(s string) *tax.TAID {
	id := tax.TAID(s)
	return &id
}

func rangeFixture(quarter tax.Quarter, seq int64) tax.AddressRangeRecord {
	return tax.AddressRangeRecord{
		State:       "TX",
		Zip:         "78247",
		Street:      "OCONNOR",
		AddressFrom: 17400,
		AddressTo:   17499,
		County:      testTAID("4227000"),
		City:        testTAID("1015000"),
		Quarter:     quarter,
		ImportSeq:   seq,
	}
}

func TestArchiveRepositoryRanges(t *testing.T) {
	repo := NewArchiveRepository(testDatabase(t))
	ctx := context.Background()
	q1 := tax.Quarter{Year: 2026, Q: 1}
	q2 := tax.Quarter{Year: 2026, Q: 2}

	require.NoError(t, repo.ReplaceQuarterRanges(ctx, q1, []tax.AddressRangeRecord{
		rangeFixture(q1, 1),
		rangeFixture(q1, 2),
	}))
	require.NoError(t, repo.ReplaceQuarterRanges(ctx, q2, []tax.AddressRangeRecord{
		rangeFixture(q2, 3),
	}))

	t.Run("load round trips", func(t *testing.T) {
		records, err := repo.LoadQuarterRanges(ctx, q1)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "OCONNOR", records[0].Street)
		assert.Equal(t, q1, records[0].Quarter)
		require.NotNil(t, records[0].County)
		assert.Equal(t, tax.TAID("4227000"), *records[0].County)
		assert.Nil(t, records[0].Transit1)
		assert.Equal(t, int64(1), records[0].ImportSeq, "ordered by import sequence")
	})

	t.Run("replace is idempotent per quarter", func(t *testing.T) {
		require.NoError(t, repo.ReplaceQuarterRanges(ctx, q1, []tax.AddressRangeRecord{
			rangeFixture(q1, 4),
		}))
		records, err := repo.LoadQuarterRanges(ctx, q1)
		require.NoError(t, err)
		assert.Len(t, records, 1, "rerun replaces rather than appends")

		others, err := repo.LoadQuarterRanges(ctx, q2)
		require.NoError(t, err)
		assert.Len(t, others, 1, "other quarters untouched")
	})

	t.Run("list quarters oldest first", func(t *testing.T) {
		quarters, err := repo.ListQuarters(ctx)
		require.NoError(t, err)
		assert.Equal(t, []tax.Quarter{q1, q2}, quarters)
	})

	t.Run("prune removes old quarters", func(t *testing.T) {
		removed, err := repo.PruneQuartersBefore(ctx, q2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		quarters, err := repo.ListQuarters(ctx)
		require.NoError(t, err)
		assert.Equal(t, []tax.Quarter{q2}, quarters)
	})
}

func TestArchiveRepositoryJurisdictionsAndRates(t *testing.T) {
	repo := NewArchiveRepository(testDatabase(t))
	ctx := context.Background()
	effective := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveJurisdictions(ctx, []tax.Jurisdiction{
		{ID: "4227000", Name: "BEXAR COUNTY", Type: tax.JurisdictionTypeCounty, Code: "BEX"},
	}))

	t.Run("save is an upsert", func(t *testing.T) {
		require.NoError(t, repo.SaveJurisdictions(ctx, []tax.Jurisdiction{
			{ID: "4227000", Name: "BEXAR COUNTY RENAMED", Type: tax.JurisdictionTypeCounty, Code: "BEX"},
		}))
		jurisdictions, err := repo.LoadJurisdictions(ctx)
		require.NoError(t, err)
		require.Len(t, jurisdictions, 1)
		assert.Equal(t, "BEXAR COUNTY RENAMED", jurisdictions[0].Name)
	})

	t.Run("rates replaced per jurisdiction", func(t *testing.T) {
		expiry := effective.AddDate(0, 6, 0)
		history := []tax.TaxRate{
			{JurisdictionID: "4227000", Percentage: decimal.RequireFromString("6.25"), FlatFee: decimal.Zero, EffectiveDate: effective, ExpirationDate: &expiry},
			{JurisdictionID: "4227000", Percentage: decimal.RequireFromString("6.75"), FlatFee: decimal.Zero, EffectiveDate: expiry},
		}
		require.NoError(t, repo.ReplaceRates(ctx, "4227000", history))
		require.NoError(t, repo.ReplaceRates(ctx, "4227000", history), "replace is idempotent")

		loaded, err := repo.LoadRates(ctx)
		require.NoError(t, err)
		require.Len(t, loaded[tax.TAID("4227000")], 2)
		first := loaded[tax.TAID("4227000")][0]
		assert.True(t, first.Percentage.Equal(decimal.RequireFromString("6.25")))
		require.NotNil(t, first.ExpirationDate)
	})
}

func TestArchiveRepositoryImportHistory(t *testing.T) {
	repo := NewArchiveRepository(testDatabase(t))
	ctx := context.Background()
	started := time.Now().UTC().Truncate(time.Second)

	first := &models.ImportHistoryModel{
		Quarter:      "2026Q1",
		Counties:     2,
		CountiesOK:   1,
		RowsImported: 100,
		StartedAt:    started.Add(-time.Hour),
	}
	require.NoError(t, repo.SaveImportHistory(ctx, first))
	assert.NotEqual(t, uuid.Nil, first.ID, "id assigned on save")

	finished := started
	require.NoError(t, repo.SaveImportHistory(ctx, &models.ImportHistoryModel{
		ID:           uuid.New(),
		Quarter:      "2026Q1",
		Counties:     2,
		CountiesOK:   2,
		RowsImported: 120,
		StartedAt:    started,
		FinishedAt:   &finished,
	}))
	require.NoError(t, repo.SaveImportHistory(ctx, &models.ImportHistoryModel{
		Quarter:   "2026Q2",
		StartedAt: started,
	}))

	t.Run("filtered by quarter newest first", func(t *testing.T) {
		rows, err := repo.ListImportHistory(ctx, tax.Quarter{Year: 2026, Q: 1}, 10)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, 120, rows[0].RowsImported)
	})

	t.Run("zero quarter lists all", func(t *testing.T) {
		rows, err := repo.ListImportHistory(ctx, tax.Quarter{}, 10)
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("limit applied", func(t *testing.T) {
		rows, err := repo.ListImportHistory(ctx, tax.Quarter{}, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}
