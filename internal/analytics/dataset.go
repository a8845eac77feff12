package analytics

import (
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// RegionCoverage counts what a region contributes to the table.
type RegionCoverage struct {
	Region   models.Region `json:"region"`
	Records  int           `json:"records"`
	Cities   int           `json:"cities"`
	Stations int           `json:"stations"`
}

// DatasetStats describes the whole canonical table.
type DatasetStats struct {
	Records     int              `json:"records"`
	Cities      int              `json:"cities"`
	States      int              `json:"states"`
	Classes     int              `json:"product_classes"`
	Stations    int              `json:"stations"`
	PriceMin    float64          `json:"price_min"`
	PriceMax    float64          `json:"price_max"`
	PriceMean   float64          `json:"price_mean"`
	PriceMedian float64          `json:"price_median"`
	ByClass     map[string]int   `json:"records_by_class"`
	Coverage    []RegionCoverage `json:"coverage"`
	Unresolved  int              `json:"unresolved_records"`
}

// Describe computes table-wide counts and price figures across all classes.
func Describe(table *models.CanonicalTable) (DatasetStats, bool) {
	rows := table.Observations()
	if len(rows) == 0 {
		return DatasetStats{}, false
	}

	stats := DatasetStats{
		Records: len(rows),
		ByClass: make(map[string]int),
	}

	cities := make(map[string]bool)
	states := make(map[string]bool)
	regionCities := make(map[models.Region]map[string]bool)
	coverage := make(map[models.Region]*RegionCoverage)
	prices := make([]float64, len(rows))

	for i, r := range rows {
		prices[i] = r.PriceMean
		stats.Stations += r.StationsSurveyed
		stats.ByClass[string(r.ProductClass)]++
		cities[r.City+"|"+r.StateCode] = true
		states[r.StateCode] = true

		if r.Region == models.RegionUnresolved {
			stats.Unresolved++
			continue
		}
		cov, ok := coverage[r.Region]
		if !ok {
			cov = &RegionCoverage{Region: r.Region}
			coverage[r.Region] = cov
			regionCities[r.Region] = make(map[string]bool)
		}
		cov.Records++
		cov.Stations += r.StationsSurveyed
		regionCities[r.Region][r.City+"|"+r.StateCode] = true
	}

	sorted := sortedCopy(prices)
	stats.Cities = len(cities)
	stats.States = len(states)
	stats.Classes = len(stats.ByClass)
	stats.PriceMin = sorted[0]
	stats.PriceMax = sorted[len(sorted)-1]
	stats.PriceMean = mean(prices)
	stats.PriceMedian = percentile(sorted, 50)

	for _, region := range models.Regions {
		if cov, ok := coverage[region]; ok {
			cov.Cities = len(regionCities[region])
			stats.Coverage = append(stats.Coverage, *cov)
		}
	}
	return stats, true
}
