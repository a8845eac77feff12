package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// DedupPolicy decides which observation survives when several rows share
// the (city, state_code, product_class) key.
type DedupPolicy string

const (
	// DedupLowestPrice keeps the row with the smallest price_mean; on equal
	// prices the first row wins.
	DedupLowestPrice DedupPolicy = "lowest_price"
	// DedupKeepAll disables deduplication. Tables built this way do not
	// satisfy the one-row-per-key invariant and exist for diagnostics.
	DedupKeepAll DedupPolicy = "keep_all"
)

// ParseDedupPolicy accepts the policy names above; empty means the default.
func ParseDedupPolicy(s string) (DedupPolicy, error) {
	switch p := DedupPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return DedupLowestPrice, nil
	case DedupLowestPrice, DedupKeepAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown dedup policy %q", s)
}

// defaultStations is used when the surveyed-stations cell is blank or bad.
const defaultStations = 1

// maxStations bounds the surveyed-stations count before conversion to int.
const maxStations = math.MaxInt32

var errStationsOutOfRange = errors.New("stations count out of range")

// Canonicalizer turns resolved grid rows into observations.
type Canonicalizer struct {
	dedup  DedupPolicy
	logger *slog.Logger
}

// NewCanonicalizer creates a canonicalizer. An empty policy means
// DedupLowestPrice.
func NewCanonicalizer(dedup DedupPolicy, logger *slog.Logger) *Canonicalizer {
	if dedup == "" {
		dedup = DedupLowestPrice
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Canonicalizer{dedup: dedup, logger: logger}
}

// Canonicalize reads every data row below the header, drops rows that break
// the observation invariants and deduplicates the rest. The drop report is
// always filled in, including on an empty result.
func (c *Canonicalizer) Canonicalize(grid models.RawGrid, res *schema.Resolution) (*models.CanonicalTable, models.DropReport) {
	var report models.DropReport
	rows := make([]models.Observation, 0, len(grid))

	for i := res.HeaderRow + 1; i < len(grid); i++ {
		row := grid[i]
		if isBlankRow(row) {
			continue
		}
		report.RowsIn++

		obs, reason := c.canonicalizeRow(row, i+1, res.Columns)
		switch reason {
		case dropMissingPrice:
			report.Reasons.MissingPrice++
			continue
		case dropEmptyCity:
			report.Reasons.EmptyCity++
			continue
		case dropUnmappedProduct:
			report.Reasons.UnmappedProduct++
			continue
		}

		if obs.Region == models.RegionUnresolved {
			report.Reasons.UnresolvedRegion++
			c.logger.Debug("state not resolved, row tagged UNRESOLVED",
				slog.Int("row", i+1),
				slog.String("state", obs.StateCode),
				slog.String("city", obs.City))
		}
		rows = append(rows, obs)
	}

	kept, duplicates := c.deduplicate(rows)
	report.Reasons.Duplicate = duplicates
	report.RowsOut = len(kept)

	return models.NewCanonicalTable(kept), report
}

type dropReason int

const (
	keepRow dropReason = iota
	dropMissingPrice
	dropEmptyCity
	dropUnmappedProduct
)

func (c *Canonicalizer) canonicalizeRow(row []string, rowNum int, cols schema.ColumnMap) (models.Observation, dropReason) {
	var obs models.Observation

	// Product classification runs first: a row outside the taxonomy counts as
	// unmapped_product even when its price is also missing.
	rawProduct, _ := cols.Value(row, schema.FieldProduct)
	class, ok := ClassifyProduct(rawProduct)
	if !ok {
		c.logger.Debug("product outside taxonomy, row dropped",
			slog.Int("row", rowNum),
			slog.String("product", rawProduct))
		return obs, dropUnmappedProduct
	}
	obs.Product = strings.TrimSpace(rawProduct)
	obs.ProductClass = class

	rawPrice, _ := cols.Value(row, schema.FieldPriceMean)
	price, err := ParseDecimal(rawPrice)
	if err != nil || price <= 0 {
		if err != nil && !errors.Is(err, ErrEmptyValue) {
			c.logCoercion(&NumericCoercionError{Row: rowNum, Field: schema.FieldPriceMean, Value: rawPrice, Err: err})
		}
		return obs, dropMissingPrice
	}
	obs.PriceMean = price

	rawCity, _ := cols.Value(row, schema.FieldCity)
	obs.City = textnorm.NormalizeName(rawCity)
	if obs.City == "" {
		return obs, dropEmptyCity
	}

	rawState, _ := cols.Value(row, schema.FieldState)
	if code, ok := textnorm.ResolveState(rawState); ok {
		region, _ := textnorm.RegionForStateCode(code)
		obs.StateCode = code
		obs.Region = models.Region(region)
	} else {
		obs.StateCode = textnorm.NormalizeName(rawState)
		obs.Region = models.RegionUnresolved
	}

	obs.StationsSurveyed = c.stations(row, rowNum, cols)
	obs.PriceMin = c.optionalDecimal(row, rowNum, cols, schema.FieldPriceMin)
	obs.PriceMax = c.optionalDecimal(row, rowNum, cols, schema.FieldPriceMax)
	obs.PriceStdDev = c.optionalDecimal(row, rowNum, cols, schema.FieldPriceStdDev)
	obs.PriceUnit, _ = cols.Value(row, schema.FieldPriceUnit)
	obs.Period = c.period(row, rowNum, cols)

	return obs, keepRow
}

func (c *Canonicalizer) stations(row []string, rowNum int, cols schema.ColumnMap) int {
	raw, ok := cols.Value(row, schema.FieldStationsSurveyed)
	if !ok {
		return defaultStations
	}
	n, err := ParseDecimal(raw)
	if err != nil {
		if !errors.Is(err, ErrEmptyValue) {
			c.logCoercion(&NumericCoercionError{Row: rowNum, Field: schema.FieldStationsSurveyed, Value: raw, Err: err})
		}
		return defaultStations
	}
	if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 || n > maxStations {
		c.logCoercion(&NumericCoercionError{Row: rowNum, Field: schema.FieldStationsSurveyed, Value: raw, Err: errStationsOutOfRange})
		return defaultStations
	}
	return int(math.Round(n))
}

func (c *Canonicalizer) optionalDecimal(row []string, rowNum int, cols schema.ColumnMap, f schema.Field) *float64 {
	raw, ok := cols.Value(row, f)
	if !ok {
		return nil
	}
	v, err := ParseDecimal(raw)
	if err != nil {
		if !errors.Is(err, ErrEmptyValue) {
			c.logCoercion(&NumericCoercionError{Row: rowNum, Field: f, Value: raw, Err: err})
		}
		return nil
	}
	return &v
}

func (c *Canonicalizer) period(row []string, rowNum int, cols schema.ColumnMap) models.Period {
	var p models.Period

	if raw, ok := cols.Value(row, schema.FieldPeriodStart); ok {
		if t, err := ParsePeriodDate(raw); err == nil {
			p.Start = t
		} else if !errors.Is(err, ErrEmptyValue) {
			c.logger.Debug("unparseable period start",
				slog.Int("row", rowNum),
				slog.String("value", raw))
		}
	}

	if raw, ok := cols.Value(row, schema.FieldPeriodEnd); ok {
		if t, err := ParsePeriodDate(raw); err == nil {
			p.End = t
		}
	}
	if p.End.IsZero() {
		p.End = p.Start
	}
	return p
}

func (c *Canonicalizer) logCoercion(err *NumericCoercionError) {
	c.logger.Debug("numeric coercion failed",
		slog.Int("row", err.Row),
		slog.String("field", string(err.Field)),
		slog.String("value", err.Value),
		slog.String("error", err.Error()))
}

type dedupKey struct {
	city  string
	state string
	class models.ProductClass
}

// deduplicate applies the policy and returns the survivors in order of first
// appearance together with the number of rows discarded.
func (c *Canonicalizer) deduplicate(rows []models.Observation) ([]models.Observation, int) {
	if c.dedup == DedupKeepAll {
		return rows, 0
	}

	index := make(map[dedupKey]int, len(rows))
	kept := make([]models.Observation, 0, len(rows))
	duplicates := 0

	for _, obs := range rows {
		key := dedupKey{city: obs.City, state: obs.StateCode, class: obs.ProductClass}
		pos, seen := index[key]
		if !seen {
			index[key] = len(kept)
			kept = append(kept, obs)
			continue
		}
		duplicates++
		if obs.PriceMean < kept[pos].PriceMean {
			kept[pos] = obs
		}
	}
	return kept, duplicates
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
