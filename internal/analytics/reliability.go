// Package analytics answers price questions over a canonical table. Every
// function is a pure read of the table and safe to call concurrently.
package analytics

import (
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// Reliability labels attached to price results.
const (
	ReliabilityHigh   = "high"
	ReliabilityMedium = "medium"
)

// ReliabilityPolicy is the two-stage sample-size gate applied before a city
// may appear in best/worst/ranking answers. Each stage tries its thresholds
// in order and keeps the first one that leaves any candidate; when none
// does, the stage passes everything through.
type ReliabilityPolicy struct {
	// RowThresholds filter individual rows by stations surveyed.
	RowThresholds []int
	// GroupThresholds filter city groups by total stations surveyed.
	GroupThresholds []int
	// HighStations is the group total at which a result is rated "high".
	HighStations int
}

// DefaultReliabilityPolicy: rows need 5 then 3 stations, groups 10 then 5.
func DefaultReliabilityPolicy() ReliabilityPolicy {
	return ReliabilityPolicy{
		RowThresholds:   []int{5, 3},
		GroupThresholds: []int{10, 5},
		HighStations:    10,
	}
}

// Gate records which thresholds were applied; 0 means the stage fell back
// to unfiltered data.
type Gate struct {
	RowThreshold   int `json:"row_threshold"`
	GroupThreshold int `json:"group_threshold"`
}

// CityGroup aggregates the rows of one (city, state) pair.
type CityGroup struct {
	City      string        `json:"city"`
	StateCode string        `json:"state_code"`
	Region    models.Region `json:"region"`
	AvgPrice  float64       `json:"avg_price"`
	MinPrice  float64       `json:"min_price"`
	MaxPrice  float64       `json:"max_price"`
	Stations  int           `json:"stations"`
	Rows      int           `json:"rows"`
}

// reliability rates a group by its total stations.
func (p ReliabilityPolicy) reliability(stations int) string {
	if stations >= p.HighStations {
		return ReliabilityHigh
	}
	return ReliabilityMedium
}

// Candidates runs the gate over rows of a single product class and returns
// the surviving city groups in order of first appearance.
func (p ReliabilityPolicy) Candidates(rows []models.Observation) ([]CityGroup, Gate) {
	var gate Gate
	if len(rows) == 0 {
		return nil, gate
	}

	filtered := rows
	for _, t := range p.RowThresholds {
		if kept := filterRows(rows, t); len(kept) > 0 {
			filtered = kept
			gate.RowThreshold = t
			break
		}
	}

	groups := GroupByCity(filtered)
	result := groups
	for _, t := range p.GroupThresholds {
		if kept := filterGroups(groups, t); len(kept) > 0 {
			result = kept
			gate.GroupThreshold = t
			break
		}
	}
	return result, gate
}

func filterRows(rows []models.Observation, minStations int) []models.Observation {
	out := make([]models.Observation, 0, len(rows))
	for _, r := range rows {
		if r.StationsSurveyed >= minStations {
			out = append(out, r)
		}
	}
	return out
}

func filterGroups(groups []CityGroup, minStations int) []CityGroup {
	out := make([]CityGroup, 0, len(groups))
	for _, g := range groups {
		if g.Stations >= minStations {
			out = append(out, g)
		}
	}
	return out
}

// GroupByCity groups rows by (city, state_code), summing stations and
// averaging price_mean. Groups keep the order in which they first appear.
func GroupByCity(rows []models.Observation) []CityGroup {
	type key struct{ city, state string }

	index := make(map[key]int)
	groups := make([]CityGroup, 0)
	sums := make([]float64, 0)

	for _, r := range rows {
		k := key{r.City, r.StateCode}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, CityGroup{
				City:      r.City,
				StateCode: r.StateCode,
				Region:    r.Region,
				MinPrice:  r.PriceMean,
				MaxPrice:  r.PriceMean,
			})
			sums = append(sums, 0)
		}
		g := &groups[i]
		g.Stations += r.StationsSurveyed
		g.Rows++
		sums[i] += r.PriceMean
		if r.PriceMean < g.MinPrice {
			g.MinPrice = r.PriceMean
		}
		if r.PriceMean > g.MaxPrice {
			g.MaxPrice = r.PriceMean
		}
	}

	for i := range groups {
		groups[i].AvgPrice = sums[i] / float64(groups[i].Rows)
	}
	return groups
}
