package analytics

import (
	"math"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// Volatility bands on the coefficient of variation. Heuristic constants,
// not calibrated against any external series.
const (
	volatilityLowBelow      = 0.05
	volatilityModerateBelow = 0.10
)

// Volatility levels.
const (
	VolatilityLow      = "low"
	VolatilityModerate = "moderate"
	VolatilityHigh     = "high"
)

// Percentiles holds the price distribution quantiles.
type Percentiles struct {
	P10 float64 `json:"p10"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P90 float64 `json:"p90"`
}

// VolatilityResult describes price dispersion across all rows of a class.
type VolatilityResult struct {
	ProductClass models.ProductClass `json:"product_class"`
	SampleSize   int                 `json:"sample_size"`
	Mean         float64             `json:"mean"`
	StdDev       float64             `json:"std_dev"`
	CV           float64             `json:"coefficient_of_variation"`
	Band         string              `json:"band"`
	Level        string              `json:"level"`
	Min          float64             `json:"min"`
	Max          float64             `json:"max"`
	Range        float64             `json:"range"`
	Percentiles  Percentiles         `json:"percentiles"`
}

// Volatility computes cv = population stddev / mean over every row of the
// class (not grouped by city) and classifies it.
func Volatility(table *models.CanonicalTable, class models.ProductClass) (VolatilityResult, bool) {
	prices := classPrices(table, class)
	if len(prices) == 0 {
		return VolatilityResult{}, false
	}

	sorted := sortedCopy(prices)
	m := mean(prices)
	sd := stddev(prices, 0)
	cv := 0.0
	if m > 0 {
		cv = sd / m
	}

	return VolatilityResult{
		ProductClass: class,
		SampleSize:   len(prices),
		Mean:         m,
		StdDev:       sd,
		CV:           cv,
		Band:         VolatilityBand(cv),
		Level:        volatilityLevel(cv),
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Range:        sorted[len(sorted)-1] - sorted[0],
		Percentiles: Percentiles{
			P10: percentile(sorted, 10),
			P25: percentile(sorted, 25),
			P50: percentile(sorted, 50),
			P75: percentile(sorted, 75),
			P90: percentile(sorted, 90),
		},
	}, true
}

// VolatilityBand classifies a coefficient of variation.
func VolatilityBand(cv float64) string {
	switch {
	case cv < volatilityLowBelow:
		return VolatilityLow
	case cv < volatilityModerateBelow:
		return VolatilityModerate
	default:
		return VolatilityHigh
	}
}

// volatilityLevel is the finer five-step description shown to users.
func volatilityLevel(cv float64) string {
	switch {
	case cv < 0.03:
		return "very_low"
	case cv < 0.06:
		return "low"
	case cv < 0.10:
		return "moderate"
	case cv < 0.15:
		return "high"
	default:
		return "very_high"
	}
}

// Trend directions and recommendations.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"

	RecommendFillNow = "fill_now"
	RecommendCanWait = "can_wait"
)

// Lookback window bounds, in days.
const (
	DefaultLookbackDays = 90
	MinLookbackDays     = 7
	MaxLookbackDays     = 365
)

// PriceRange is a five-number summary of prices.
type PriceRange struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
}

// TrendResult is a cross-sectional proxy for price direction. Only one
// snapshot is available, so the skew of the current price distribution
// stands in for a temporal trend; it is not a forecast.
type TrendResult struct {
	ProductClass   models.ProductClass `json:"product_class"`
	CurrentPrice   float64             `json:"current_price"`
	Volatility     float64             `json:"volatility"`
	Skew           float64             `json:"skew"`
	Indicator      float64             `json:"trend_indicator"`
	Direction      string              `json:"direction"`
	Strength       float64             `json:"strength"`
	Confidence     float64             `json:"confidence_level"`
	Recommendation string              `json:"recommendation"`
	Reason         string              `json:"reason"`
	LookbackDays   int                 `json:"lookback_days"`
	SampleSize     int                 `json:"sample_size"`
	PriceRange     PriceRange          `json:"price_range"`
}

// ClampLookback bounds a requested lookback to [7, 365]; 0 means the default.
func ClampLookback(days int) int {
	if days == 0 {
		return DefaultLookbackDays
	}
	if days < MinLookbackDays {
		return MinLookbackDays
	}
	if days > MaxLookbackDays {
		return MaxLookbackDays
	}
	return days
}

// Trend computes the skew-based indicator and its confidence:
//
//	skew       = (mean - median) / stddev
//	indicator  = clamp(skew * 50, -100, 100)
//	confidence = clamp(min(100, n/1000*100) - cv*200 + min(30, lookback/90*30), 0, 100)
func Trend(table *models.CanonicalTable, class models.ProductClass, lookbackDays int) (TrendResult, bool) {
	prices := classPrices(table, class)
	if len(prices) == 0 {
		return TrendResult{}, false
	}
	lookbackDays = ClampLookback(lookbackDays)

	sorted := sortedCopy(prices)
	m := mean(prices)
	med := percentile(sorted, 50)

	skew := 0.0
	if sd := stddev(prices, 0); sd > 0 {
		skew = (m - med) / sd
	}
	indicator := clamp(skew*50, -100, 100)

	cv := 0.0
	if m > 0 {
		cv = stddev(prices, 1) / m
	}

	n := float64(len(prices))
	sampleScore := math.Min(100, n/1000*100)
	periodBonus := math.Min(30, float64(lookbackDays)/90*30)
	confidence := clamp(sampleScore-cv*200+periodBonus, 0, 100)

	direction := TrendStable
	switch {
	case skew > 0.1:
		direction = TrendUp
	case skew < -0.1:
		direction = TrendDown
	}

	rec, reason := recommend(cv, indicator)

	return TrendResult{
		ProductClass:   class,
		CurrentPrice:   m,
		Volatility:     cv,
		Skew:           skew,
		Indicator:      indicator,
		Direction:      direction,
		Strength:       math.Min(100, math.Abs(skew)*100),
		Confidence:     confidence,
		Recommendation: rec,
		Reason:         reason,
		LookbackDays:   lookbackDays,
		SampleSize:     len(prices),
		PriceRange: PriceRange{
			Min:    sorted[0],
			Q1:     percentile(sorted, 25),
			Median: med,
			Q3:     percentile(sorted, 75),
			Max:    sorted[len(sorted)-1],
		},
	}, true
}

// recommend weighs volatility and trend into a fill-now/can-wait call.
func recommend(cv, indicator float64) (string, string) {
	score := 0
	conditions := 0

	switch {
	case cv > 0.08:
		score += 2
		conditions++
	case cv > 0.05:
		score++
		conditions++
	}

	switch {
	case indicator > 5:
		score += 2
		conditions++
	case indicator < -5:
		score--
		conditions++
	}

	switch {
	case conditions == 0:
		return RecommendCanWait, "stable prices with no clear trend"
	case score >= 3:
		return RecommendFillNow, "significant risk of rising prices"
	case score >= 1:
		return RecommendFillNow, "conditions favour filling up now"
	case score <= -2:
		return RecommendCanWait, "prices may come down"
	default:
		return RecommendCanWait, "neutral outlook, waiting for a better price is reasonable"
	}
}

func classPrices(table *models.CanonicalTable, class models.ProductClass) []float64 {
	rows := table.ByClass(class)
	prices := make([]float64, len(rows))
	for i, r := range rows {
		prices[i] = r.PriceMean
	}
	return prices
}
