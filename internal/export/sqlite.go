// Package export writes a canonical table to a standalone SQLite file for
// offline analysis.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

const schemaSQL = `
CREATE TABLE observations (
	city              TEXT    NOT NULL,
	state_code        TEXT    NOT NULL,
	region            TEXT    NOT NULL,
	product           TEXT    NOT NULL,
	product_class     TEXT    NOT NULL,
	price_mean        REAL    NOT NULL,
	price_min         REAL,
	price_max         REAL,
	price_stddev      REAL,
	stations_surveyed INTEGER NOT NULL,
	price_unit        TEXT,
	period_start      TEXT,
	period_end        TEXT
);
CREATE INDEX idx_observations_class ON observations (product_class);
CREATE INDEX idx_observations_city ON observations (city, state_code);
CREATE TABLE metadata (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// Metadata is stored alongside the rows.
type Metadata struct {
	Source     string
	Report     models.DropReport
	ExportedAt time.Time
}

// WriteSQLite replaces the file at path with a database holding every
// observation of table plus the drop report.
func WriteSQLite(ctx context.Context, path string, table *models.CanonicalTable, meta Metadata) error {
	_ = os.Remove(path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO observations (
		city, state_code, region, product, product_class, price_mean, price_min,
		price_max, price_stddev, stations_surveyed, price_unit, period_start, period_end
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range table.Observations() {
		_, err := stmt.ExecContext(ctx,
			o.City, o.StateCode, string(o.Region), o.Product, string(o.ProductClass),
			o.PriceMean, nullFloat(o.PriceMin), nullFloat(o.PriceMax), nullFloat(o.PriceStdDev),
			o.StationsSurveyed, o.PriceUnit, dateText(o.Period.Start), dateText(o.Period.End),
		)
		if err != nil {
			return fmt.Errorf("insert %s/%s: %w", o.City, o.StateCode, err)
		}
	}

	report, err := json.Marshal(meta.Report)
	if err != nil {
		return err
	}
	exportedAt := meta.ExportedAt
	if exportedAt.IsZero() {
		exportedAt = time.Now().UTC()
	}
	for key, value := range map[string]string{
		"source":      meta.Source,
		"drop_report": string(report),
		"exported_at": exportedAt.Format(time.RFC3339),
	} {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("insert metadata: %w", err)
		}
	}

	return tx.Commit()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func dateText(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format("2006-01-02"), Valid: true}
}
