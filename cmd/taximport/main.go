package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/msphost/taxengine/internal/application/ingestion"
	"github.com/msphost/taxengine/internal/domain/tax"
	"github.com/msphost/taxengine/internal/infrastructure/config"
	"github.com/msphost/taxengine/internal/infrastructure/index"
	"github.com/msphost/taxengine/internal/infrastructure/logger"
	"github.com/msphost/taxengine/internal/infrastructure/persistence"
	"github.com/msphost/taxengine/internal/infrastructure/persistence/models"
)

func main() {
	// Parse flags
	var (
		rangesDir string
		ratesPath string
		logLevel  string
	)

	flag.StringVar(&rangesDir, "ranges", "", "Directory of per-county ZIP files named STATE_COUNTY.zip")
	flag.StringVar(&ratesPath, "rates", "", "Path to the quarterly rate CSV (optional)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log := logger.New(config.LogConfig{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to audit database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate audit database", zap.Error(err))
	}

	archive := persistence.NewArchiveRepository(db)
	ctx := context.Background()

	switch command {
	case "import":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "import requires a quarter, e.g. 2026Q1")
			os.Exit(1)
		}
		if err := runImport(ctx, log, archive, args[1], rangesDir, ratesPath); err != nil {
			log.Fatal("Import failed", zap.Error(err))
		}
	case "history":
		quarter := ""
		if len(args) > 1 {
			quarter = args[1]
		}
		if err := runHistory(ctx, archive, quarter); err != nil {
			log.Fatal("History listing failed", zap.Error(err))
		}
	case "prune":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "prune requires a quarter; quarters before it are removed")
			os.Exit(1)
		}
		if err := runPrune(ctx, log, archive, args[1]); err != nil {
			log.Fatal("Prune failed", zap.Error(err))
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

// runImport restores the index from the audit archive, ingests one quarter's
// files, and records the run in import history.
func runImport(ctx context.Context, log *zap.Logger, archive *persistence.ArchiveRepository, quarterID, rangesDir, ratesPath string) error {
	if rangesDir == "" {
		return fmt.Errorf("-ranges is required for import")
	}

	store := index.NewStore(log)
	if err := restoreIndex(ctx, log, archive, store); err != nil {
		return fmt.Errorf("failed to restore index from archive: %w", err)
	}

	sources, err := loadQuarterSources(rangesDir, ratesPath)
	if err != nil {
		return err
	}
	log.Info("Loaded quarterly sources",
		zap.String("quarter", quarterID),
		zap.Int("counties", len(sources.Counties)),
		zap.Bool("rates", sources.RatesCSV != nil))

	svc := ingestion.NewImportService(store, archive, log)
	report, err := svc.ImportQuarter(ctx, quarterID, sources)
	if err != nil {
		return err
	}

	if histErr := archive.SaveImportHistory(ctx, historyFromReport(report)); histErr != nil {
		log.Warn("Failed to record import history", zap.Error(histErr))
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.Committed {
		return fmt.Errorf("no county file parsed; quarter %s was not committed", quarterID)
	}
	return nil
}

// restoreIndex replays archived quarters, jurisdictions and rates into a
// fresh in-memory store so the import sees the same state a running engine
// would.
func restoreIndex(ctx context.Context, log *zap.Logger, archive *persistence.ArchiveRepository, store *index.Store) error {
	quarters, err := archive.ListQuarters(ctx)
	if err != nil {
		return err
	}
	for _, quarter := range quarters {
		records, err := archive.LoadQuarterRanges(ctx, quarter)
		if err != nil {
			return err
		}
		store.ReplaceQuarter(quarter, records)
	}

	jurisdictions, err := archive.LoadJurisdictions(ctx)
	if err != nil {
		return err
	}
	store.UpsertJurisdictions(jurisdictions)

	rates, err := archive.LoadRates(ctx)
	if err != nil {
		return err
	}
	for id, history := range rates {
		for _, rate := range history {
			if err := store.UpsertRate(rate); err != nil {
				log.Warn("Skipping archived rate",
					zap.String("jurisdiction", string(id)),
					zap.Error(err))
			}
		}
	}

	log.Info("Restored index from archive", zap.Int("quarters", len(quarters)))
	return nil
}

// loadQuarterSources reads every STATE_COUNTY.zip in dir plus the optional
// rate CSV. Files that do not follow the naming convention are rejected up
// front; a bad archive body is handled per county during the import itself.
func loadQuarterSources(dir, ratesPath string) (ingestion.QuarterSources, error) {
	var sources ingestion.QuarterSources

	entries, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil {
		return sources, err
	}
	if len(entries) == 0 {
		return sources, fmt.Errorf("no county ZIP files found in %s", dir)
	}

	for _, path := range entries {
		state, county, err := parseCountyFileName(filepath.Base(path))
		if err != nil {
			return sources, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return sources, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sources.Counties = append(sources.Counties, ingestion.CountySource{
			County: county,
			State:  state,
			Data:   data,
		})
	}

	if ratesPath != "" {
		data, err := os.ReadFile(ratesPath)
		if err != nil {
			return sources, fmt.Errorf("failed to read rate file: %w", err)
		}
		sources.RatesCSV = data
	}
	return sources, nil
}

// parseCountyFileName splits "TX_TRAVIS.zip" into state and county
func parseCountyFileName(name string) (state, county string, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.SplitN(base, "_", 2)
	if len(parts) != 2 || len(parts[0]) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("county file %q must be named STATE_COUNTY.zip", name)
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), nil
}

func historyFromReport(report *ingestion.ImportReport) *models.ImportHistoryModel {
	countiesOK := 0
	errorDetails := make([]string, 0)
	for _, county := range report.Counties {
		if county.Success {
			countiesOK++
			continue
		}
		errorDetails = append(errorDetails, fmt.Sprintf("%s/%s: %s", county.State, county.County, county.Error))
	}
	finished := report.FinishedAt
	return &models.ImportHistoryModel{
		ID:            report.ID,
		Quarter:       report.Quarter.String(),
		Counties:      len(report.Counties),
		CountiesOK:    countiesOK,
		RowsImported:  report.RowsImported,
		RowsSkipped:   report.RowsSkipped,
		RatesImported: report.RatesImported,
		ErrorDetails:  strings.Join(errorDetails, "; "),
		StartedAt:     report.StartedAt,
		FinishedAt:    &finished,
	}
}

func runHistory(ctx context.Context, archive *persistence.ArchiveRepository, quarterID string) error {
	var quarter tax.Quarter
	if quarterID != "" {
		parsed, err := tax.ParseQuarter(quarterID)
		if err != nil {
			return err
		}
		quarter = parsed
	}

	rows, err := archive.ListImportHistory(ctx, quarter, 20)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("No import history")
		return nil
	}

	for _, row := range rows {
		finished := "-"
		if row.FinishedAt != nil {
			finished = row.FinishedAt.Format(time.RFC3339)
		}
		fmt.Printf("%s  %s  counties=%d/%d rows=%d skipped=%d rates=%d finished=%s\n",
			row.ID, row.Quarter, row.CountiesOK, row.Counties,
			row.RowsImported, row.RowsSkipped, row.RatesImported, finished)
		if row.ErrorDetails != "" {
			fmt.Printf("  errors: %s\n", row.ErrorDetails)
		}
	}
	return nil
}

func runPrune(ctx context.Context, log *zap.Logger, archive *persistence.ArchiveRepository, quarterID string) error {
	quarter, err := tax.ParseQuarter(quarterID)
	if err != nil {
		return err
	}
	removed, err := archive.PruneQuartersBefore(ctx, quarter)
	if err != nil {
		return err
	}
	log.Info("Pruned archived quarters",
		zap.String("before", quarter.String()),
		zap.Int64("rows_removed", removed))
	return nil
}

func printUsage() {
	fmt.Println("Quarterly tax data import tool")
	fmt.Println()
	fmt.Println("Usage: taximport [flags] <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  import <quarter>   Import a quarter, e.g. import 2026Q1 -ranges ./data -rates ./rates.csv")
	fmt.Println("  history [quarter]  Show recent import runs, optionally for one quarter")
	fmt.Println("  prune <quarter>    Remove archived quarters before the given quarter")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
