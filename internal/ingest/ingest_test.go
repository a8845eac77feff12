package ingest

import (
	"errors"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/schema"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

var testHeader = []string{
	"DATA INICIAL", "DATA FINAL", "REGIÃO", "ESTADO", "MUNICÍPIO", "PRODUTO",
	"NÚMERO DE POSTOS PESQUISADOS", "UNIDADE DE MEDIDA", "PREÇO MÉDIO REVENDA",
	"DESVIO PADRÃO REVENDA", "PREÇO MÍNIMO REVENDA", "PREÇO MÁXIMO REVENDA",
}

func quietIngester(dedup DedupPolicy) *Ingester {
	return New(Options{
		Dedup:  dedup,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// row builds a data row aligned with testHeader.
func row(state, city, product, stations, price string) []string {
	return []string{"2024-01-07", "2024-01-13", "", state, city, product, stations, "R$/l", price, "", "", ""}
}

func gridOf(preamble int, rows ...[]string) models.RawGrid {
	grid := make(models.RawGrid, 0, preamble+1+len(rows))
	for i := 0; i < preamble; i++ {
		grid = append(grid, []string{"preâmbulo " + strconv.Itoa(i)})
	}
	grid = append(grid, testHeader)
	return append(grid, rows...)
}

func TestIngestGrid_DropsUnmappedProduct(t *testing.T) {
	grid := gridOf(3,
		row("SÃO PAULO", "SÃO PAULO", "ÓLEO DIESEL S10", "12", "6,05"),
		row("SÃO PAULO", "SÃO PAULO", "BIODIESEL", "12", "6,50"),
	)

	res, err := quietIngester("").IngestGrid(grid)

	require.NoError(t, err)
	obs := res.Table.Observations()
	require.Len(t, obs, 1)
	assert.Equal(t, models.ClassDieselS10, obs[0].ProductClass)
	assert.Equal(t, "ÓLEO DIESEL S10", obs[0].Product)
	assert.Equal(t, 1, res.Report.Reasons.UnmappedProduct)
	assert.Equal(t, 2, res.Report.RowsIn)
	assert.Equal(t, 1, res.Report.RowsOut)
}

func TestIngestGrid_KeepsLowestPriceOnDuplicate(t *testing.T) {
	grid := gridOf(0,
		row("RJ", "NITERÓI", "GASOLINA COMUM", "10", "5.00"),
		row("RJ", "NITEROI", "GASOLINA ADITIVADA", "8", "4.80"),
	)

	res, err := quietIngester("").IngestGrid(grid)

	require.NoError(t, err)
	obs := res.Table.Observations()
	require.Len(t, obs, 1)
	assert.Equal(t, 4.80, obs[0].PriceMean)
	assert.Equal(t, "GASOLINA ADITIVADA", obs[0].Product)
	assert.Equal(t, 1, res.Report.Reasons.Duplicate)
}

func TestIngestGrid_DuplicateTieKeepsFirst(t *testing.T) {
	grid := gridOf(0,
		row("RJ", "NITEROI", "GASOLINA COMUM", "10", "5.00"),
		row("RJ", "NITEROI", "GASOLINA ADITIVADA", "8", "5.00"),
	)

	res, err := quietIngester("").IngestGrid(grid)

	require.NoError(t, err)
	obs := res.Table.Observations()
	require.Len(t, obs, 1)
	assert.Equal(t, "GASOLINA COMUM", obs[0].Product)
}

func TestIngestGrid_OneObservationPerKey(t *testing.T) {
	grid := gridOf(2,
		row("SP", "CAMPINAS", "GASOLINA", "20", "5.40"),
		row("SP", "CAMPINAS", "GASOLINA COMUM", "20", "5.30"),
		row("SP", "CAMPINAS", "ETANOL", "20", "3.40"),
		row("MG", "CAMPINAS", "GASOLINA", "20", "5.90"),
		row("SP", "SANTOS", "GASOLINA", "20", "5.50"),
		row("SP", "Santos", "GASOLINA ADITIVADA", "20", "5.70"),
	)

	res, err := quietIngester("").IngestGrid(grid)
	require.NoError(t, err)

	seen := make(map[string]int)
	for _, o := range res.Table.Observations() {
		seen[o.City+"|"+o.StateCode+"|"+string(o.ProductClass)]++
	}
	for key, n := range seen {
		assert.Equal(t, 1, n, "key %s", key)
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, 2, res.Report.Reasons.Duplicate)
}

func TestIngestGrid_KeepAllPolicy(t *testing.T) {
	grid := gridOf(0,
		row("RJ", "NITEROI", "GASOLINA", "10", "5.00"),
		row("RJ", "NITEROI", "GASOLINA", "8", "4.80"),
	)

	res, err := quietIngester(DedupKeepAll).IngestGrid(grid)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Table.Len())
	assert.Zero(t, res.Report.Reasons.Duplicate)
}

func TestIngestGrid_UnresolvedStateIsRetained(t *testing.T) {
	grid := gridOf(0,
		row("ATLÂNTIDA", "POSEIDONIA", "GASOLINA", "10", "5.00"),
	)

	res, err := quietIngester("").IngestGrid(grid)

	require.NoError(t, err)
	obs := res.Table.Observations()
	require.Len(t, obs, 1)
	assert.Equal(t, models.RegionUnresolved, obs[0].Region)
	assert.Equal(t, "ATLANTIDA", obs[0].StateCode)
	assert.Equal(t, 1, res.Report.Reasons.UnresolvedRegion)
	assert.Equal(t, 1, res.Report.RowsOut)
}

func TestIngestGrid_RowLevelDrops(t *testing.T) {
	grid := gridOf(1,
		row("SP", "CAMPINAS", "GASOLINA", "10", ""),
		row("SP", "CAMPINAS", "ETANOL", "10", "0"),
		row("SP", "CAMPINAS", "DIESEL", "10", "abc"),
		row("SP", "", "GASOLINA", "10", "5.10"),
		[]string{"", "", " "},
		row("SP", "SANTOS", "GNV", "", "4,20"),
		row("SP", "SANTOS", "QUEROSENE", "10", ""),
	)

	res, err := quietIngester("").IngestGrid(grid)
	require.NoError(t, err)

	r := res.Report
	assert.Equal(t, 6, r.RowsIn, "blank rows are not counted")
	assert.Equal(t, 3, r.Reasons.MissingPrice)
	assert.Equal(t, 1, r.Reasons.EmptyCity)
	assert.Equal(t, 1, r.Reasons.UnmappedProduct, "unknown product outranks a missing price")
	assert.Equal(t, 1, r.RowsOut)
	assert.Equal(t, r.RowsIn,
		r.RowsOut+r.Reasons.MissingPrice+r.Reasons.EmptyCity+r.Reasons.UnmappedProduct+r.Reasons.Duplicate)

	obs := res.Table.Observations()
	assert.Equal(t, 1, obs[0].StationsSurveyed, "missing stations default to one")
	assert.Equal(t, 4.20, obs[0].PriceMean)
}

func TestIngestGrid_StationsOutOfRange(t *testing.T) {
	grid := gridOf(1,
		row("RJ", "NITEROI", "GASOLINA", "1e30", "5,00"),
		row("RJ", "MACAE", "GASOLINA", "-4", "5,20"),
		row("RJ", "PETROPOLIS", "GASOLINA", "12", "5,30"),
	)

	res, err := quietIngester("").IngestGrid(grid)
	require.NoError(t, err)
	require.Equal(t, 3, res.Report.RowsOut)

	got := map[string]int{}
	for _, o := range res.Table.Observations() {
		assert.GreaterOrEqual(t, o.StationsSurveyed, 0, "city=%s", o.City)
		got[o.City] = o.StationsSurveyed
	}
	assert.Equal(t, map[string]int{"NITEROI": 1, "MACAE": 1, "PETROPOLIS": 12}, got)
}

func TestStateRegionsMatchModelRegions(t *testing.T) {
	for _, code := range textnorm.StateCodes() {
		name, ok := textnorm.RegionForStateCode(code)
		require.True(t, ok, code)
		assert.True(t, slices.Contains(models.Regions, models.Region(name)), "state %s maps to unknown region %q", code, name)
	}
}

func TestIngestGrid_RoundTrip(t *testing.T) {
	start := time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.January, 13, 0, 0, 0, 0, time.UTC)
	f := func(v float64) *float64 { return &v }

	want := []models.Observation{
		{City: "SAO PAULO", StateCode: "SP", Region: models.RegionSudeste, Product: "GASOLINA COMUM", ProductClass: models.ClassGasolina,
			PriceMean: 5.61, PriceMin: f(4.99), PriceMax: f(6.49), PriceStdDev: f(0.21), StationsSurveyed: 412, PriceUnit: "R$/l", Period: models.Period{Start: start, End: end}},
		{City: "RECIFE", StateCode: "PE", Region: models.RegionNordeste, Product: "ETANOL HIDRATADO", ProductClass: models.ClassEtanol,
			PriceMean: 4.19, PriceMin: f(3.89), PriceMax: f(4.59), PriceStdDev: f(0.15), StationsSurveyed: 75, PriceUnit: "R$/l", Period: models.Period{Start: start, End: end}},
		{City: "PORTO ALEGRE", StateCode: "RS", Region: models.RegionSul, Product: "GNV", ProductClass: models.ClassGNV,
			PriceMean: 4.79, StationsSurveyed: 9, PriceUnit: "R$/m3", Period: models.Period{Start: start, End: end}},
	}

	names := map[string]string{"SP": "SÃO PAULO", "PE": "PERNAMBUCO", "RS": "RIO GRANDE DO SUL"}
	fmtOpt := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}

	grid := gridOf(12)
	for _, o := range want {
		grid = append(grid, []string{
			"2024-01-07", "2024-01-13", string(o.Region), names[o.StateCode], o.City, o.Product,
			strconv.Itoa(o.StationsSurveyed), o.PriceUnit, strconv.FormatFloat(o.PriceMean, 'f', -1, 64),
			fmtOpt(o.PriceStdDev), fmtOpt(o.PriceMin), fmtOpt(o.PriceMax),
		})
	}

	res, err := quietIngester("").IngestGrid(grid)

	require.NoError(t, err)
	assert.Equal(t, 12, res.Resolution.HeaderRow)
	assert.Equal(t, want, res.Table.Observations())
}

func TestIngest_Workbook(t *testing.T) {
	raw := buildWorkbook(t, [][]interface{}{
		{"AGÊNCIA NACIONAL DO PETRÓLEO"},
		{"LEVANTAMENTO DE PREÇOS"},
		{"MÊS", "PRODUTO", "REGIÃO", "ESTADO", "MUNICÍPIO", "NÚMERO DE POSTOS PESQUISADOS", "UNIDADE DE MEDIDA", "PREÇO MÉDIO REVENDA"},
		{45292, "GASOLINA COMUM", "SUDESTE", "SÃO PAULO", "SÃO PAULO", 20, "R$/l", 5.1},
		{45292, "ETANOL HIDRATADO", "SUDESTE", "SÃO PAULO", "SÃO PAULO", 20, "R$/l", 3.45},
	})

	res, err := quietIngester("").Ingest(raw)

	require.NoError(t, err)
	assert.Equal(t, 2, res.Resolution.HeaderRow)
	obs := res.Table.Observations()
	require.Len(t, obs, 2)
	assert.Equal(t, "SAO PAULO", obs[0].City)
	assert.Equal(t, "SP", obs[0].StateCode)
	assert.Equal(t, 5.1, obs[0].PriceMean)
	assert.Equal(t, 2024, obs[0].Period.Start.Year())
	assert.Equal(t, obs[0].Period.Start, obs[0].Period.End, "missing end date equals start")
}

func TestIngest_SchemaNotFound(t *testing.T) {
	raw := []byte("relatório;semanal\n1;2\n3;4\n")

	_, err := Ingest(raw)

	var notFound *schema.SchemaNotFoundError
	require.True(t, errors.As(err, &notFound), "got %v", err)
}

func TestIngest_RequiredColumnMissing(t *testing.T) {
	raw := []byte("MUNICÍPIO;ESTADO;PRODUTO;NÚMERO DE POSTOS PESQUISADOS\nCAMPINAS;SP;GASOLINA;10\n")

	_, err := Ingest(raw)

	var missing *schema.RequiredColumnMissingError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, schema.FieldPriceMean, missing.Field)
}

func TestIngest_EmptyInput(t *testing.T) {
	_, err := Ingest(nil)
	assert.ErrorIs(t, err, schema.ErrEmptyGrid)
}

func TestParseDedupPolicy(t *testing.T) {
	p, err := ParseDedupPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DedupLowestPrice, p)

	p, err = ParseDedupPolicy(" KEEP_ALL ")
	require.NoError(t, err)
	assert.Equal(t, DedupKeepAll, p)

	_, err = ParseDedupPolicy("highest_price")
	assert.Error(t, err)
}
