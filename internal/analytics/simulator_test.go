package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

func trip(distance float64) TripParams {
	return TripParams{TankCapacity: 50, CurrentLevel: 50, Consumption: 10, Distance: distance}
}

func TestSimulateTrip_Safe(t *testing.T) {
	price := 5.0

	res, err := SimulateTrip(trip(100), &price)

	require.NoError(t, err)
	assert.Equal(t, TripSafe, res.Status)
	assert.InDelta(t, 250.0, res.CurrentAutonomy, 1e-9)
	assert.InDelta(t, 10.0, res.FuelNeeded, 1e-9)
	assert.InDelta(t, 15.0, res.RemainingLiters, 1e-9)
	assert.InDelta(t, 30.0, res.RemainingPercent, 1e-9)
	assert.InDelta(t, 50.0, res.SafetyMargin, 1e-9)
	require.NotNil(t, res.EstimatedCost)
	assert.InDelta(t, 50.0, *res.EstimatedCost, 1e-9)
}

func TestSimulateTrip_Danger(t *testing.T) {
	res, err := SimulateTrip(trip(300), nil)

	require.NoError(t, err)
	assert.Equal(t, TripDanger, res.Status)
	assert.InDelta(t, 5.0, res.ShortageLiters, 1e-9)
	assert.Equal(t, 0.0, res.RemainingLiters)
	assert.Nil(t, res.EstimatedCost)
}

func TestSimulateTrip_Warnings(t *testing.T) {
	low, err := SimulateTrip(trip(180), nil)
	require.NoError(t, err)
	assert.Equal(t, TripWarning, low.Status)
	assert.InDelta(t, 14.0, low.RemainingPercent, 1e-9)
	assert.Contains(t, low.Message, "consider refuelling")

	reserve, err := SimulateTrip(trip(210), nil)
	require.NoError(t, err)
	assert.Equal(t, TripWarning, reserve.Status)
	assert.InDelta(t, 8.0, reserve.RemainingPercent, 1e-9)
	assert.Contains(t, reserve.Message, "reserve")
}

func TestSimulateTrip_Invalid(t *testing.T) {
	cases := []TripParams{
		{TankCapacity: 0, CurrentLevel: 50, Consumption: 10, Distance: 10},
		{TankCapacity: 50, CurrentLevel: 120, Consumption: 10, Distance: 10},
		{TankCapacity: 50, CurrentLevel: 50, Consumption: 0, Distance: 10},
		{TankCapacity: 50, CurrentLevel: 50, Consumption: 10, Distance: -1},
	}
	for _, p := range cases {
		_, err := SimulateTrip(p, nil)
		assert.ErrorIs(t, err, ErrInvalidTrip)
	}
}

func TestCityPrice(t *testing.T) {
	table := tableOf(
		obs("SANTA RITA", "PB", models.ClassGasolina, 5.0, 10),
		obs("SANTA RITA", "MA", models.ClassGasolina, 6.0, 10),
	)

	price, ok := CityPrice(table, models.ClassGasolina, "Santa Rita")
	require.True(t, ok)
	assert.InDelta(t, 5.5, price, 1e-9)

	_, ok = CityPrice(table, models.ClassEtanol, "Santa Rita")
	assert.False(t, ok)
}
