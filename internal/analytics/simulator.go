package analytics

import (
	"errors"
	"fmt"
	"math"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// Trip statuses.
const (
	TripSafe    = "safe"
	TripWarning = "warning"
	TripDanger  = "danger"
)

const (
	safetyMarginShare   = 0.2
	reservePercentBelow = 10.0
	lowPercentBelow     = 20.0
)

// ErrInvalidTrip is wrapped by every TripParams validation failure.
var ErrInvalidTrip = errors.New("invalid trip parameters")

// TripParams describes the vehicle and the planned trip.
type TripParams struct {
	TankCapacity float64 `json:"tank_capacity"`
	CurrentLevel float64 `json:"current_level"`
	Consumption  float64 `json:"consumption"`
	Distance     float64 `json:"distance"`
}

// Validate checks ranges: capacity, consumption and distance must be
// positive and the level a percentage.
func (p TripParams) Validate() error {
	switch {
	case p.TankCapacity <= 0:
		return fmt.Errorf("%w: tank_capacity must be positive", ErrInvalidTrip)
	case p.CurrentLevel < 0 || p.CurrentLevel > 100:
		return fmt.Errorf("%w: current_level must be between 0 and 100", ErrInvalidTrip)
	case p.Consumption <= 0:
		return fmt.Errorf("%w: consumption must be positive", ErrInvalidTrip)
	case p.Distance <= 0:
		return fmt.Errorf("%w: distance must be positive", ErrInvalidTrip)
	}
	return nil
}

// TripResult is the outcome of a trip simulation.
type TripResult struct {
	CurrentAutonomy  float64  `json:"current_autonomy"`
	RequiredAutonomy float64  `json:"required_autonomy"`
	FuelNeeded       float64  `json:"fuel_needed"`
	RemainingLiters  float64  `json:"remaining_liters"`
	RemainingPercent float64  `json:"remaining_percent"`
	SafetyMargin     float64  `json:"safety_margin"`
	ShortageLiters   float64  `json:"shortage_liters,omitempty"`
	Status           string   `json:"status"`
	Message          string   `json:"message"`
	EstimatedCost    *float64 `json:"estimated_cost,omitempty"`
}

// SimulateTrip checks whether the fuel in the tank covers the distance.
// pricePerLiter, when given, adds the estimated cost of the fuel needed.
func SimulateTrip(p TripParams, pricePerLiter *float64) (TripResult, error) {
	if err := p.Validate(); err != nil {
		return TripResult{}, err
	}

	liters := p.TankCapacity * p.CurrentLevel / 100
	autonomy := liters * p.Consumption
	needed := p.Distance / p.Consumption
	remaining := liters - needed
	remainingPct := remaining / p.TankCapacity * 100

	res := TripResult{
		CurrentAutonomy:  autonomy,
		RequiredAutonomy: p.Distance,
		FuelNeeded:       needed,
		RemainingLiters:  math.Max(0, remaining),
		RemainingPercent: math.Max(0, remainingPct),
		SafetyMargin:     autonomy * safetyMarginShare,
	}

	switch {
	case remaining < 0:
		res.ShortageLiters = -remaining
		res.Status = TripDanger
		res.Message = fmt.Sprintf("not enough fuel: %.1f liters (%.0f km) short", -remaining, -remaining*p.Consumption)
	case remainingPct < reservePercentBelow:
		res.Status = TripWarning
		res.Message = fmt.Sprintf("arriving on reserve with %.1f%% (%.1f liters); refuel before leaving", remainingPct, remaining)
	case remainingPct < lowPercentBelow:
		res.Status = TripWarning
		res.Message = fmt.Sprintf("arriving with %.1f%% (%.1f liters); consider refuelling on the way", remainingPct, remaining)
	default:
		res.Status = TripSafe
		res.Message = fmt.Sprintf("safe trip, arriving with %.1f%% (%.1f liters)", remainingPct, remaining)
	}

	if pricePerLiter != nil && *pricePerLiter > 0 {
		cost := needed * *pricePerLiter
		res.EstimatedCost = &cost
	}
	return res, nil
}

// CityPrice averages price_mean over every row of a city (any state) for
// one class. It supplies the simulator's fuel price.
func CityPrice(table *models.CanonicalTable, class models.ProductClass, city string) (float64, bool) {
	name := textnorm.NormalizeName(city)
	var prices []float64
	for _, r := range table.ByClass(class) {
		if r.City == name {
			prices = append(prices, r.PriceMean)
		}
	}
	if len(prices) == 0 {
		return 0, false
	}
	return mean(prices), true
}
