package analytics

import (
	"sort"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// PriceResult is a single gated best or worst city.
type PriceResult struct {
	City         string              `json:"city"`
	StateCode    string              `json:"state_code"`
	Region       models.Region       `json:"region"`
	ProductClass models.ProductClass `json:"product_class"`
	Price        float64             `json:"price"`
	Stations     int                 `json:"stations"`
	Reliability  string              `json:"reliability"`
	Gate         Gate                `json:"gate"`
}

// RankingEntry is one position in the cheapest-cities ranking.
type RankingEntry struct {
	Position    int           `json:"position"`
	City        string        `json:"city"`
	StateCode   string        `json:"state_code"`
	Region      models.Region `json:"region"`
	AvgPrice    float64       `json:"avg_price"`
	Stations    int           `json:"stations"`
	Reliability string        `json:"reliability"`
}

// BestPrice returns the cheapest city that passes the reliability gate.
// The boolean is false when the table has no rows for the class.
func BestPrice(table *models.CanonicalTable, class models.ProductClass, policy ReliabilityPolicy) (PriceResult, bool) {
	return extremePrice(table, class, policy, func(a, b float64) bool { return a < b })
}

// WorstPrice returns the most expensive city that passes the gate.
func WorstPrice(table *models.CanonicalTable, class models.ProductClass, policy ReliabilityPolicy) (PriceResult, bool) {
	return extremePrice(table, class, policy, func(a, b float64) bool { return a > b })
}

func extremePrice(table *models.CanonicalTable, class models.ProductClass, policy ReliabilityPolicy, better func(a, b float64) bool) (PriceResult, bool) {
	groups, gate := policy.Candidates(table.ByClass(class))
	if len(groups) == 0 {
		return PriceResult{}, false
	}

	pick := groups[0]
	for _, g := range groups[1:] {
		if better(g.AvgPrice, pick.AvgPrice) {
			pick = g
		}
	}

	return PriceResult{
		City:         pick.City,
		StateCode:    pick.StateCode,
		Region:       pick.Region,
		ProductClass: class,
		Price:        pick.AvgPrice,
		Stations:     pick.Stations,
		Reliability:  policy.reliability(pick.Stations),
		Gate:         gate,
	}, true
}

// Ranking sorts the gated city groups by ascending average price. Equal
// prices keep group order. A limit <= 0 returns every group.
func Ranking(table *models.CanonicalTable, class models.ProductClass, limit int, policy ReliabilityPolicy) []RankingEntry {
	groups, _ := policy.Candidates(table.ByClass(class))

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].AvgPrice < groups[j].AvgPrice
	})

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	entries := make([]RankingEntry, len(groups))
	for i, g := range groups {
		entries[i] = RankingEntry{
			Position:    i + 1,
			City:        g.City,
			StateCode:   g.StateCode,
			Region:      g.Region,
			AvgPrice:    g.AvgPrice,
			Stations:    g.Stations,
			Reliability: policy.reliability(g.Stations),
		}
	}
	return entries
}

// Summary is the per-class overview shown on the landing page.
type Summary struct {
	ProductClass    models.ProductClass `json:"product_class"`
	Best            PriceResult         `json:"best"`
	Worst           PriceResult         `json:"worst"`
	PotentialSaving float64             `json:"potential_saving"`
	TotalStations   int                 `json:"total_stations"`
	NationalAverage float64             `json:"national_average"`
	Records         int                 `json:"records"`
	Ranking         []RankingEntry      `json:"ranking"`
}

// summaryRankingSize is how many ranking entries Summary includes.
const summaryRankingSize = 10

// Summarize combines best, worst, national figures and the top ranking.
func Summarize(table *models.CanonicalTable, class models.ProductClass, policy ReliabilityPolicy) (Summary, bool) {
	rows := table.ByClass(class)
	if len(rows) == 0 {
		return Summary{}, false
	}

	best, _ := BestPrice(table, class, policy)
	worst, _ := WorstPrice(table, class, policy)

	prices := make([]float64, len(rows))
	stations := 0
	for i, r := range rows {
		prices[i] = r.PriceMean
		stations += r.StationsSurveyed
	}

	return Summary{
		ProductClass:    class,
		Best:            best,
		Worst:           worst,
		PotentialSaving: worst.Price - best.Price,
		TotalStations:   stations,
		NationalAverage: mean(prices),
		Records:         len(rows),
		Ranking:         Ranking(table, class, summaryRankingSize, policy),
	}, true
}
