// Command ingest runs one ingestion over a local spreadsheet (or the
// configured download source) and prints what was understood: the header
// resolution, the drop report and the best price for one fuel type. The
// canonical table can optionally be exported to SQLite.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/config"
	"github.com/fuelmetrics/fuelmetrics-api/internal/export"
	"github.com/fuelmetrics/fuelmetrics-api/internal/ingest"
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
	"github.com/fuelmetrics/fuelmetrics-api/internal/source"
)

type report struct {
	Source     string                  `json:"source"`
	Resolution *schema.Resolution      `json:"resolution"`
	DropReport models.DropReport       `json:"drop_report"`
	Records    int                     `json:"records"`
	Best       *analytics.PriceResult  `json:"best,omitempty"`
	Dataset    *analytics.DatasetStats `json:"dataset,omitempty"`
}

func main() {
	_ = godotenv.Load()

	file := flag.String("file", "", "local spreadsheet (.xlsx or .csv); empty downloads from the configured source")
	sqlitePath := flag.String("sqlite", "", "write the canonical table to this SQLite file")
	fuel := flag.String("fuel", "gasolina", "fuel type for the best price")
	dedup := flag.String("dedup", "", "duplicate policy: lowest_price or keep_all")
	verbose := flag.Bool("v", false, "log every dropped row")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*file, *sqlitePath, *fuel, *dedup, logger); err != nil {
		fmt.Fprintln(os.Stderr, "ingest:", err)
		os.Exit(1)
	}
}

func run(file, sqlitePath, fuel, dedupName string, logger *slog.Logger) error {
	cfg := config.Load()

	class, ok := models.ParseProductClass(fuel)
	if !ok {
		return fmt.Errorf("unknown fuel type %q", fuel)
	}
	dedup, err := ingest.ParseDedupPolicy(dedupName)
	if err != nil {
		return err
	}

	var fetcher pipeline.Fetcher = source.FileFetcher{Path: file}
	if file == "" {
		fetcher = source.NewHTTPFetcher(cfg.Source, cfg.Upload.MaxFileSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	raw, from, err := fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	ingester := ingest.New(ingest.Options{
		Anchors: schema.AnchorPolicy{
			MinMatches: cfg.Ingest.MinAnchors,
			ScanRows:   cfg.Ingest.HeaderScanRows,
		},
		Dedup:  dedup,
		Logger: logger,
	})
	result, err := ingester.Ingest(raw)
	if err != nil {
		return err
	}

	out := report{
		Source:     from,
		Resolution: result.Resolution,
		DropReport: result.Report,
		Records:    result.Table.Len(),
	}
	if best, found := analytics.BestPrice(result.Table, class, analytics.DefaultReliabilityPolicy()); found {
		out.Best = &best
	}
	if stats, found := analytics.Describe(result.Table); found {
		out.Dataset = &stats
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if sqlitePath != "" {
		err := export.WriteSQLite(ctx, sqlitePath, result.Table, export.Metadata{
			Source:     from,
			Report:     result.Report,
			ExportedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "wrote %d rows to %s\n", result.Table.Len(), sqlitePath)
	}
	return nil
}
