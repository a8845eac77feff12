// Package ingest turns the regulator's weekly price spreadsheet into a
// canonical table: it reads the grid, resolves the header through the schema
// package and canonicalizes every data row.
package ingest

import (
	"fmt"
	"log/slog"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
)

// Options configures an Ingester. The zero value is usable.
type Options struct {
	Anchors schema.AnchorPolicy
	Dedup   DedupPolicy
	Logger  *slog.Logger
}

// Result is the output of one successful ingestion.
type Result struct {
	Table      *models.CanonicalTable
	Report     models.DropReport
	Resolution *schema.Resolution
}

// Ingester runs header resolution followed by canonicalization. It keeps no
// state between calls.
type Ingester struct {
	resolver      *schema.Resolver
	canonicalizer *Canonicalizer
	logger        *slog.Logger
}

// New creates an Ingester.
func New(opts Options) *Ingester {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{
		resolver:      schema.NewResolver(opts.Anchors),
		canonicalizer: NewCanonicalizer(opts.Dedup, logger),
		logger:        logger,
	}
}

// Ingest parses raw spreadsheet bytes with the default options.
func Ingest(raw []byte) (*Result, error) {
	return New(Options{}).Ingest(raw)
}

// Ingest parses raw spreadsheet bytes. Structural failures come back as
// *schema.SchemaNotFoundError or *schema.RequiredColumnMissingError; row
// problems never fail the call and only show up in the drop report.
func (in *Ingester) Ingest(raw []byte) (*Result, error) {
	grid, err := ReadGrid(raw)
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	return in.IngestGrid(grid)
}

// IngestGrid runs resolution and canonicalization on an already decoded grid.
func (in *Ingester) IngestGrid(grid models.RawGrid) (*Result, error) {
	res, err := in.resolver.Resolve(grid)
	if err != nil {
		return nil, fmt.Errorf("resolve header: %w", err)
	}

	for _, w := range res.Warnings {
		in.logger.Debug("header warning", slog.String("warning", w))
	}

	table, report := in.canonicalizer.Canonicalize(grid, res)

	in.logger.Info("spreadsheet canonicalized",
		slog.Int("header_row", res.HeaderRow),
		slog.Int("mapped_columns", res.Columns.Len()),
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("missing_price", report.Reasons.MissingPrice),
		slog.Int("unmapped_product", report.Reasons.UnmappedProduct),
		slog.Int("unresolved_region", report.Reasons.UnresolvedRegion),
		slog.Int("empty_city", report.Reasons.EmptyCity),
		slog.Int("duplicate", report.Reasons.Duplicate))

	return &Result{Table: table, Report: report, Resolution: res}, nil
}
