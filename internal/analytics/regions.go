package analytics

import (
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// RegionStat summarizes one macro-region for a product class.
type RegionStat struct {
	Region     models.Region `json:"region"`
	AvgPrice   float64       `json:"avg_price"`
	MinPrice   float64       `json:"min_price"`
	MaxPrice   float64       `json:"max_price"`
	CityCount  int           `json:"city_count"`
	Stations   int           `json:"stations_count"`
	PriceStd   float64       `json:"price_std"`
	ColorIndex float64       `json:"color_index"`
}

// RegionStats computes per-region figures over every row of the class.
// Rows tagged UNRESOLVED are left out; regions without rows are omitted.
// ColorIndex places each regional average on a 0-100 scale between the
// cheapest and the most expensive region, and is 0 everywhere when all
// averages are equal.
func RegionStats(table *models.CanonicalTable, class models.ProductClass) []RegionStat {
	prices := make(map[models.Region][]float64)
	cities := make(map[models.Region]map[string]bool)
	stations := make(map[models.Region]int)

	for _, r := range table.ByClass(class) {
		if r.Region == models.RegionUnresolved {
			continue
		}
		prices[r.Region] = append(prices[r.Region], r.PriceMean)
		if cities[r.Region] == nil {
			cities[r.Region] = make(map[string]bool)
		}
		cities[r.Region][r.City+"|"+r.StateCode] = true
		stations[r.Region] += r.StationsSurveyed
	}

	stats := make([]RegionStat, 0, len(models.Regions))
	for _, region := range models.Regions {
		ps := prices[region]
		if len(ps) == 0 {
			continue
		}
		sorted := sortedCopy(ps)
		stats = append(stats, RegionStat{
			Region:    region,
			AvgPrice:  mean(ps),
			MinPrice:  sorted[0],
			MaxPrice:  sorted[len(sorted)-1],
			CityCount: len(cities[region]),
			Stations:  stations[region],
			PriceStd:  stddev(ps, 1),
		})
	}

	applyColorIndex(stats)
	return stats
}

func applyColorIndex(stats []RegionStat) {
	if len(stats) == 0 {
		return
	}
	lo, hi := stats[0].AvgPrice, stats[0].AvgPrice
	for _, s := range stats[1:] {
		if s.AvgPrice < lo {
			lo = s.AvgPrice
		}
		if s.AvgPrice > hi {
			hi = s.AvgPrice
		}
	}

	span := hi - lo
	for i := range stats {
		if span <= 0 {
			stats[i].ColorIndex = 0
			continue
		}
		stats[i].ColorIndex = clamp((stats[i].AvgPrice-lo)/span*100, 0, 100)
	}
}
