package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

func TestLocate_KnownValue(t *testing.T) {
	c, ok := NewGeocoder().Locate("São Paulo", "SP")

	require.True(t, ok)
	assert.InDelta(t, -23.5608, c.Latitude, 1e-9)
	assert.InDelta(t, -46.5893, c.Longitude, 1e-9)
}

func TestLocate_Deterministic(t *testing.T) {
	g := NewGeocoder()
	a, ok := g.Locate("CAMPINAS", "SP")
	require.True(t, ok)

	b, ok := g.Locate("campinas", "São Paulo")
	require.True(t, ok)

	assert.Equal(t, a, b)
}

func TestLocate_JitterStaysNearCapital(t *testing.T) {
	g := NewGeocoder()
	for _, code := range textnorm.StateCodes() {
		capital, ok := g.Capital(code)
		require.True(t, ok, code)

		for _, city := range []string{"A", "CIDADE", "SANTA RITA", "XIQUE XIQUE"} {
			c, ok := g.Locate(city, code)
			require.True(t, ok)
			assert.LessOrEqual(t, math.Abs(c.Latitude-capital.Latitude), 0.05+1e-9, code)
			assert.LessOrEqual(t, math.Abs(c.Longitude-capital.Longitude), 0.05+1e-9, code)
		}
	}
}

func TestLocate_DifferentCitiesDiffer(t *testing.T) {
	g := NewGeocoder()
	a, _ := g.Locate("SAO PAULO", "SP")
	b, _ := g.Locate("CAMPINAS", "SP")
	assert.NotEqual(t, a, b)
}

func TestLocate_UnknownState(t *testing.T) {
	_, ok := NewGeocoder().Locate("ANYWHERE", "XX")
	assert.False(t, ok)
}

func TestMapPoints(t *testing.T) {
	table := models.NewCanonicalTable([]models.Observation{
		{City: "SAO PAULO", StateCode: "SP", Region: models.RegionSudeste, ProductClass: models.ClassGasolina, PriceMean: 5.0, StationsSurveyed: 10},
		{City: "SAO PAULO", StateCode: "SP", Region: models.RegionSudeste, ProductClass: models.ClassGasolina, PriceMean: 6.0, StationsSurveyed: 5},
		{City: "LUGAR", StateCode: "ZZ", Region: models.RegionUnresolved, ProductClass: models.ClassGasolina, PriceMean: 4.0, StationsSurveyed: 1},
		{City: "SALVADOR", StateCode: "BA", Region: models.RegionNordeste, ProductClass: models.ClassEtanol, PriceMean: 4.0, StationsSurveyed: 1},
	})

	points, skipped := NewGeocoder().MapPoints(table, models.ClassGasolina, 0)

	require.Len(t, points, 1)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "SAO PAULO", points[0].City)
	assert.InDelta(t, 5.5, points[0].Price, 1e-9)
	assert.Equal(t, 15, points[0].Stations)
	assert.InDelta(t, -23.5608, points[0].Latitude, 1e-9)
}
