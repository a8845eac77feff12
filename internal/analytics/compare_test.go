package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

func compareTable() *models.CanonicalTable {
	return tableOf(
		obs("SAO PAULO", "SP", models.ClassGasolina, 5.5, 40),
		obs("CAMPINAS", "SP", models.ClassGasolina, 5.2, 15),
		obs("SANTOS", "SP", models.ClassGasolina, 5.8, 12),
		obs("RIO DE JANEIRO", "RJ", models.ClassGasolina, 6.0, 30),
		obs("CAMPINAS", "SP", models.ClassEtanol, 3.4, 15),
		obs("CAMPINA GRANDE", "PB", models.ClassGasolina, 5.9, 8),
	)
}

func TestCompareCities(t *testing.T) {
	cmp, ok := CompareCities(compareTable(), models.ClassGasolina,
		[]string{"Rio de Janeiro", "são paulo", "Campinas", "Atlantis"})

	require.True(t, ok)
	require.Len(t, cmp.Cities, 3)
	assert.Equal(t, "CAMPINAS", cmp.Cities[0].City)
	assert.True(t, cmp.Cities[0].Recommended)
	assert.False(t, cmp.Cities[1].Recommended)
	assert.Equal(t, "RIO DE JANEIRO", cmp.Cities[2].City)
	assert.Equal(t, []string{"SP"}, cmp.Cities[0].StateCodes)
	assert.Equal(t, []string{"ATLANTIS"}, cmp.NotFound)
}

func TestCompareCities_NeedsTwoCities(t *testing.T) {
	_, ok := CompareCities(compareTable(), models.ClassGasolina, []string{"Campinas", "campinas"})
	assert.False(t, ok)
}

func TestRecommend(t *testing.T) {
	cmp, ok := CompareCities(compareTable(), models.ClassGasolina, []string{"Sao Paulo", "Campinas", "Rio de Janeiro"})
	require.True(t, ok)

	rec, ok := Recommend(cmp)

	require.True(t, ok)
	assert.Equal(t, "CAMPINAS", rec.Best.City)
	assert.Equal(t, "RIO DE JANEIRO", rec.Worst.City)
	assert.InDelta(t, 0.8, rec.SavingsPerLiter, 1e-9)
	assert.InDelta(t, 13.3333, rec.SavingsPercent, 1e-4)
	assert.InDelta(t, 40.0, rec.SavingsPer50L, 1e-9)
}

func TestRecommend_TwoCities(t *testing.T) {
	cmp, ok := CompareCities(compareTable(), models.ClassGasolina, []string{"Sao Paulo", "Campinas"})
	require.True(t, ok)

	rec, ok := Recommend(cmp)

	require.True(t, ok)
	assert.InDelta(t, 0.3, rec.SavingsPerLiter, 1e-9)
	assert.InDelta(t, 5.4545, rec.SavingsPercent, 1e-4)
	assert.InDelta(t, 15.0, rec.SavingsPer50L, 1e-9)
}

func TestRecommend_NotEnoughCities(t *testing.T) {
	_, ok := Recommend(Comparison{})
	assert.False(t, ok)
}

func TestNearby(t *testing.T) {
	res, ok := Nearby(compareTable(), models.ClassGasolina, "São Paulo", "sp", 0)

	require.True(t, ok)
	assert.Equal(t, "SAO PAULO", res.City)
	assert.Equal(t, "SP", res.StateCode)
	require.Len(t, res.Alternatives, 2)
	assert.Equal(t, "CAMPINAS", res.Alternatives[0].City)
	assert.InDelta(t, 0.3, res.Alternatives[0].Saving, 1e-9)
	assert.Equal(t, "SANTOS", res.Alternatives[1].City)
	assert.InDelta(t, -0.3, res.Alternatives[1].Saving, 1e-9)

	limited, ok := Nearby(compareTable(), models.ClassGasolina, "Sao Paulo", "", 1)
	require.True(t, ok)
	assert.Len(t, limited.Alternatives, 1)
}

func TestNearby_UnknownCity(t *testing.T) {
	_, ok := Nearby(compareTable(), models.ClassGasolina, "Sao Paulo", "RJ", 5)
	assert.False(t, ok)
}

func TestSearchCities(t *testing.T) {
	matches := SearchCities(compareTable(), "campin", 0)

	require.Len(t, matches, 2)
	assert.Equal(t, "CAMPINAS", matches[0].City)
	assert.Equal(t, []models.ProductClass{models.ClassEtanol, models.ClassGasolina}, matches[0].Classes)
	assert.Equal(t, 30, matches[0].Stations)
	assert.InDelta(t, 4.3, matches[0].AvgPrice, 1e-9)
	assert.Equal(t, "CAMPINA GRANDE", matches[1].City)

	assert.Len(t, SearchCities(compareTable(), "campin", 1), 1)
	assert.Empty(t, SearchCities(compareTable(), "  ", 0))
}
