package analytics

import (
	"slices"
	"sort"
	"strings"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// CityComparison is one requested city in a comparison.
type CityComparison struct {
	City        string   `json:"city"`
	StateCodes  []string `json:"state_codes"`
	AvgPrice    float64  `json:"avg_price"`
	MinPrice    float64  `json:"min_price"`
	MaxPrice    float64  `json:"max_price"`
	Stations    int      `json:"stations"`
	Recommended bool     `json:"recommended"`
}

// Comparison lists the requested cities that had data, cheapest first.
type Comparison struct {
	ProductClass models.ProductClass `json:"product_class"`
	Cities       []CityComparison    `json:"cities"`
	NotFound     []string            `json:"not_found,omitempty"`
}

// CompareCities gathers the rows of each requested city (any state) and
// flags the cheapest. It needs at least two cities with data.
func CompareCities(table *models.CanonicalTable, class models.ProductClass, cities []string) (Comparison, bool) {
	rows := table.ByClass(class)
	cmp := Comparison{ProductClass: class}
	seen := make(map[string]bool, len(cities))

	for _, requested := range cities {
		name := textnorm.NormalizeName(requested)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		var prices []float64
		var states []string
		stations := 0
		for _, r := range rows {
			if r.City != name {
				continue
			}
			prices = append(prices, r.PriceMean)
			stations += r.StationsSurveyed
			if !slices.Contains(states, r.StateCode) {
				states = append(states, r.StateCode)
			}
		}
		if len(prices) == 0 {
			cmp.NotFound = append(cmp.NotFound, name)
			continue
		}

		sorted := sortedCopy(prices)
		cmp.Cities = append(cmp.Cities, CityComparison{
			City:       name,
			StateCodes: states,
			AvgPrice:   mean(prices),
			MinPrice:   sorted[0],
			MaxPrice:   sorted[len(sorted)-1],
			Stations:   stations,
		})
	}

	if len(cmp.Cities) < 2 {
		return cmp, false
	}

	sort.SliceStable(cmp.Cities, func(i, j int) bool {
		return cmp.Cities[i].AvgPrice < cmp.Cities[j].AvgPrice
	})
	cmp.Cities[0].Recommended = true
	return cmp, true
}

// litersPerTank is the reference fill used for the per-tank saving.
const litersPerTank = 50

// Recommendation turns a comparison into a savings statement.
type Recommendation struct {
	ProductClass    models.ProductClass `json:"product_class"`
	Best            CityComparison      `json:"best"`
	Worst           CityComparison      `json:"worst"`
	SavingsPerLiter float64             `json:"savings_per_liter"`
	SavingsPercent  float64             `json:"savings_percent"`
	SavingsPer50L   float64             `json:"savings_per_50_liters"`
}

// Recommend compares the cheapest and the most expensive city of cmp.
func Recommend(cmp Comparison) (Recommendation, bool) {
	if len(cmp.Cities) < 2 {
		return Recommendation{}, false
	}
	best := cmp.Cities[0]
	worst := cmp.Cities[len(cmp.Cities)-1]

	perLiter := worst.AvgPrice - best.AvgPrice
	percent := 0.0
	if worst.AvgPrice > 0 {
		percent = perLiter / worst.AvgPrice * 100
	}

	return Recommendation{
		ProductClass:    cmp.ProductClass,
		Best:            best,
		Worst:           worst,
		SavingsPerLiter: perLiter,
		SavingsPercent:  percent,
		SavingsPer50L:   perLiter * litersPerTank,
	}, true
}

// NearbyCity is an alternative city in the same state.
type NearbyCity struct {
	City     string  `json:"city"`
	AvgPrice float64 `json:"avg_price"`
	Stations int     `json:"stations"`
	Saving   float64 `json:"saving"`
}

// NearbyResult lists same-state alternatives to a base city.
type NearbyResult struct {
	ProductClass models.ProductClass `json:"product_class"`
	City         string              `json:"city"`
	StateCode    string              `json:"state_code"`
	AvgPrice     float64             `json:"avg_price"`
	Alternatives []NearbyCity        `json:"alternatives"`
}

// Nearby finds other cities of the base city's state, cheapest first, with
// the saving relative to the base city. state may be empty, in which case
// the first state the city appears under is used.
func Nearby(table *models.CanonicalTable, class models.ProductClass, city, state string, limit int) (NearbyResult, bool) {
	name := textnorm.NormalizeName(city)
	code := ""
	if state != "" {
		code, _ = textnorm.ResolveState(state)
		if code == "" {
			code = textnorm.NormalizeName(state)
		}
	}

	groups := GroupByCity(table.ByClass(class))

	var base *CityGroup
	for i := range groups {
		if groups[i].City == name && (code == "" || groups[i].StateCode == code) {
			base = &groups[i]
			break
		}
	}
	if base == nil {
		return NearbyResult{}, false
	}

	res := NearbyResult{
		ProductClass: class,
		City:         base.City,
		StateCode:    base.StateCode,
		AvgPrice:     base.AvgPrice,
		Alternatives: make([]NearbyCity, 0),
	}
	for _, g := range groups {
		if g.StateCode != base.StateCode || g.City == base.City {
			continue
		}
		res.Alternatives = append(res.Alternatives, NearbyCity{
			City:     g.City,
			AvgPrice: g.AvgPrice,
			Stations: g.Stations,
			Saving:   base.AvgPrice - g.AvgPrice,
		})
	}

	sort.SliceStable(res.Alternatives, func(i, j int) bool {
		return res.Alternatives[i].AvgPrice < res.Alternatives[j].AvgPrice
	})
	if limit > 0 && len(res.Alternatives) > limit {
		res.Alternatives = res.Alternatives[:limit]
	}
	return res, true
}

// CityMatch is a search hit.
type CityMatch struct {
	City      string                `json:"city"`
	StateCode string                `json:"state_code"`
	Region    models.Region         `json:"region"`
	AvgPrice  float64               `json:"avg_price"`
	Stations  int                   `json:"stations"`
	Classes   []models.ProductClass `json:"product_classes"`
}

// SearchCities matches query as a substring of canonical city names and
// groups hits by (city, state) across all product classes. AvgPrice mixes
// classes and is only a rough indicator. A limit <= 0 returns every hit.
func SearchCities(table *models.CanonicalTable, query string, limit int) []CityMatch {
	q := textnorm.NormalizeName(query)
	matches := make([]CityMatch, 0)
	if q == "" {
		return matches
	}

	type key struct{ city, state string }
	index := make(map[key]int)
	sums := make([]float64, 0)
	counts := make([]int, 0)

	for _, r := range table.Observations() {
		if !strings.Contains(r.City, q) {
			continue
		}
		k := key{r.City, r.StateCode}
		i, ok := index[k]
		if !ok {
			i = len(matches)
			index[k] = i
			matches = append(matches, CityMatch{City: r.City, StateCode: r.StateCode, Region: r.Region})
			sums = append(sums, 0)
			counts = append(counts, 0)
		}
		m := &matches[i]
		m.Stations += r.StationsSurveyed
		sums[i] += r.PriceMean
		counts[i]++
		if !slices.Contains(m.Classes, r.ProductClass) {
			m.Classes = append(m.Classes, r.ProductClass)
		}
	}

	for i := range matches {
		matches[i].AvgPrice = sums[i] / float64(counts[i])
		slices.Sort(matches[i].Classes)
	}

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
