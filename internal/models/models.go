package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Region is a Brazilian macro-region.
type Region string

const (
	RegionNorte       Region = "NORTE"
	RegionNordeste    Region = "NORDESTE"
	RegionCentroOeste Region = "CENTRO_OESTE"
	RegionSudeste     Region = "SUDESTE"
	RegionSul         Region = "SUL"

	// RegionUnresolved tags rows whose state could not be mapped to a code.
	// Such rows stay in the table so the gap is visible downstream.
	RegionUnresolved Region = "UNRESOLVED"
)

// Regions lists the five macro-regions in display order.
var Regions = []Region{
	RegionNorte,
	RegionNordeste,
	RegionCentroOeste,
	RegionSudeste,
	RegionSul,
}

// ProductClass is the fixed fuel taxonomy raw product labels consolidate into.
type ProductClass string

const (
	ClassGasolina  ProductClass = "GASOLINA"
	ClassEtanol    ProductClass = "ETANOL"
	ClassDiesel    ProductClass = "DIESEL"
	ClassDieselS10 ProductClass = "DIESEL_S10"
	ClassGNV       ProductClass = "GNV"
)

// ProductClasses lists every product class in display order.
var ProductClasses = []ProductClass{
	ClassGasolina,
	ClassEtanol,
	ClassDiesel,
	ClassDieselS10,
	ClassGNV,
}

// ParseProductClass accepts the lower-case API spelling ("diesel_s10") as well
// as the canonical one. Hyphens and spaces are treated as underscores.
func ParseProductClass(s string) (ProductClass, bool) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for _, pc := range ProductClasses {
		if string(pc) == key {
			return pc, true
		}
	}
	return "", false
}

// Period is the survey window a row refers to. Zero values mean the source
// cell was missing or unparseable.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Observation is one canonical row: a single (city, state, product class)
// price summary for the survey period.
type Observation struct {
	City             string       `json:"city"`
	StateCode        string       `json:"state_code"`
	Region           Region       `json:"region"`
	Product          string       `json:"product"`
	ProductClass     ProductClass `json:"product_class"`
	PriceMean        float64      `json:"price_mean"`
	PriceMin         *float64     `json:"price_min,omitempty"`
	PriceMax         *float64     `json:"price_max,omitempty"`
	PriceStdDev      *float64     `json:"price_stddev,omitempty"`
	StationsSurveyed int          `json:"stations_surveyed"`
	PriceUnit        string       `json:"price_unit,omitempty"`
	Period           Period       `json:"period"`
}

// CanonicalTable is the deduplicated, immutable result of one ingestion.
// Accessors hand out copies so a published table is never mutated.
type CanonicalTable struct {
	observations []Observation
}

// NewCanonicalTable copies obs into a new table.
func NewCanonicalTable(obs []Observation) *CanonicalTable {
	cp := make([]Observation, len(obs))
	copy(cp, obs)
	return &CanonicalTable{observations: cp}
}

// Len returns the number of observations.
func (t *CanonicalTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.observations)
}

// Observations returns a copy of every row in insertion order.
func (t *CanonicalTable) Observations() []Observation {
	if t == nil {
		return nil
	}
	cp := make([]Observation, len(t.observations))
	copy(cp, t.observations)
	return cp
}

// ByClass returns the rows of a single product class in insertion order.
func (t *CanonicalTable) ByClass(class ProductClass) []Observation {
	if t == nil {
		return nil
	}
	out := make([]Observation, 0)
	for _, o := range t.observations {
		if o.ProductClass == class {
			out = append(out, o)
		}
	}
	return out
}

// DropReasons counts rows per failure reason.
// UnresolvedRegion counts rows that were kept but tagged UNRESOLVED.
type DropReasons struct {
	MissingPrice     int `json:"missing_price"`
	UnmappedProduct  int `json:"unmapped_product"`
	UnresolvedRegion int `json:"unresolved_region"`
	EmptyCity        int `json:"empty_city"`
	Duplicate        int `json:"duplicate"`
}

// DropReport summarizes what an ingestion kept and what it discarded.
type DropReport struct {
	RowsIn  int         `json:"rows_in"`
	RowsOut int         `json:"rows_out"`
	Reasons DropReasons `json:"reasons"`
}

// IngestionRun tracks one ingestion cycle.
// DB columns: id, status, source, content_hash, header_row, column_map,
//
//	drop_report, rows_in, rows_out, last_error, duration_ms, started_at,
//	completed_at, created_at
type IngestionRun struct {
	ID          uuid.UUID       `json:"run_id"`
	Status      string          `json:"status"`
	Source      string          `json:"source"`
	ContentHash string          `json:"content_hash"`
	HeaderRow   *int            `json:"header_row,omitempty"`
	ColumnMap   json.RawMessage `json:"column_map,omitempty"`
	DropReport  json.RawMessage `json:"drop_report,omitempty"`
	RowsIn      *int            `json:"rows_in,omitempty"`
	RowsOut     *int            `json:"rows_out,omitempty"`
	LastError   *string         `json:"last_error,omitempty"`
	DurationMs  *int            `json:"duration_ms,omitempty"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RawGrid is a spreadsheet as read from disk: rows of untyped cell text with
// no trusted header. Numeric cells carry their raw textual value.
type RawGrid [][]string
