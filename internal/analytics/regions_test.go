package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

func TestRegionStats(t *testing.T) {
	table := tableOf(
		obs("SAO PAULO", "SP", models.ClassGasolina, 5.0, 20),
		obs("RIO DE JANEIRO", "RJ", models.ClassGasolina, 6.0, 10),
		obs("SALVADOR", "BA", models.ClassGasolina, 4.0, 5),
		obs("NOWHERE", "XX", models.ClassGasolina, 1.0, 50),
		obs("CURITIBA", "PR", models.ClassEtanol, 3.0, 5),
	)

	stats := RegionStats(table, models.ClassGasolina)

	require.Len(t, stats, 2)
	assert.Equal(t, models.RegionNordeste, stats[0].Region)
	assert.Equal(t, models.RegionSudeste, stats[1].Region)

	nordeste := stats[0]
	assert.InDelta(t, 4.0, nordeste.AvgPrice, 1e-9)
	assert.Equal(t, 0.0, nordeste.PriceStd, "single row has no sample deviation")
	assert.Equal(t, 0.0, nordeste.ColorIndex)

	sudeste := stats[1]
	assert.InDelta(t, 5.5, sudeste.AvgPrice, 1e-9)
	assert.Equal(t, 5.0, sudeste.MinPrice)
	assert.Equal(t, 6.0, sudeste.MaxPrice)
	assert.Equal(t, 2, sudeste.CityCount)
	assert.Equal(t, 30, sudeste.Stations)
	assert.InDelta(t, 0.7071, sudeste.PriceStd, 1e-4)
	assert.InDelta(t, 100.0, sudeste.ColorIndex, 1e-9)
}

func TestRegionStats_EqualAveragesGiveZeroColor(t *testing.T) {
	table := tableOf(
		obs("A", "SP", models.ClassDiesel, 6.0, 10),
		obs("B", "RS", models.ClassDiesel, 6.0, 10),
	)

	stats := RegionStats(table, models.ClassDiesel)

	require.Len(t, stats, 2)
	for _, s := range stats {
		assert.Equal(t, 0.0, s.ColorIndex, s.Region)
	}
}

func TestRegionStats_Empty(t *testing.T) {
	assert.Empty(t, RegionStats(nil, models.ClassGasolina))
	assert.Empty(t, RegionStats(tableOf(obs("X", "ZZ", models.ClassGasolina, 5, 10)), models.ClassGasolina))
}
