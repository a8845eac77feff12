// Package geo places cities on a map without a geocoding service. Each city
// gets its state capital's coordinates plus a small offset derived from a
// hash of the city name, so the same city always lands on the same point.
package geo

import (
	"crypto/md5"
	"encoding/binary"
	"math"

	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/textnorm"
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// capitals holds the state capital of every federative unit.
var capitals = map[string]Coordinate{
	"AC": {-9.9747, -67.8100},
	"AL": {-9.6658, -35.7350},
	"AM": {-3.1190, -60.0217},
	"AP": {0.0349, -51.0664},
	"BA": {-12.9714, -38.5014},
	"CE": {-3.7172, -38.5433},
	"DF": {-15.7942, -47.8822},
	"ES": {-20.3155, -40.3128},
	"GO": {-16.6869, -49.2648},
	"MA": {-2.5387, -44.2830},
	"MG": {-19.9167, -43.9345},
	"MS": {-20.4697, -54.6201},
	"MT": {-15.6010, -56.0974},
	"PA": {-1.4558, -48.4902},
	"PB": {-7.1195, -34.8450},
	"PE": {-8.0476, -34.8770},
	"PI": {-5.0892, -42.8016},
	"PR": {-25.4284, -49.2733},
	"RJ": {-22.9068, -43.1729},
	"RN": {-5.7945, -35.2110},
	"RO": {-8.7612, -63.9039},
	"RR": {2.8195, -60.6714},
	"RS": {-30.0331, -51.2300},
	"SC": {-27.5954, -48.5480},
	"SE": {-10.9472, -37.0731},
	"SP": {-23.5505, -46.6333},
	"TO": {-10.1844, -48.3336},
}

// Jitter spreads cities up to this many degrees away from the capital.
const (
	jitterBuckets = 1000
	jitterScale   = 10000.0
)

// Geocoder resolves (city, state) pairs to approximate coordinates. It holds
// no mutable state and is safe for concurrent use.
type Geocoder struct{}

// NewGeocoder creates a Geocoder.
func NewGeocoder() *Geocoder {
	return &Geocoder{}
}

// Locate returns the approximate position of a city. state may be a code or
// a full state name. The boolean is false when the state is unknown.
func (g *Geocoder) Locate(city, state string) (Coordinate, bool) {
	code, ok := textnorm.ResolveState(state)
	if !ok {
		return Coordinate{}, false
	}
	base, ok := capitals[code]
	if !ok {
		return Coordinate{}, false
	}

	sum := md5.Sum([]byte(textnorm.NormalizeName(city)))
	h := binary.BigEndian.Uint32(sum[:4])

	latOffset := float64(int(h%jitterBuckets)-jitterBuckets/2) / jitterScale
	lonOffset := float64(int((h>>10)%jitterBuckets)-jitterBuckets/2) / jitterScale

	return Coordinate{
		Latitude:  round6(base.Latitude + latOffset),
		Longitude: round6(base.Longitude + lonOffset),
	}, true
}

// Capital returns the unjittered capital coordinate of a state.
func (g *Geocoder) Capital(state string) (Coordinate, bool) {
	code, ok := textnorm.ResolveState(state)
	if !ok {
		return Coordinate{}, false
	}
	c, ok := capitals[code]
	return c, ok
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// MapPoint is one city marker for the price map.
type MapPoint struct {
	City      string        `json:"city"`
	StateCode string        `json:"state_code"`
	Region    models.Region `json:"region"`
	Price     float64       `json:"price"`
	Stations  int           `json:"stations"`
	Coordinate
}

// MapPoints geocodes every (city, state) of a product class, averaging the
// price over the city's rows. Rows whose state is unknown are skipped and
// counted in the second return value. A limit <= 0 returns every point.
func (g *Geocoder) MapPoints(table *models.CanonicalTable, class models.ProductClass, limit int) ([]MapPoint, int) {
	type key struct{ city, state string }

	index := make(map[key]int)
	points := make([]MapPoint, 0)
	counts := make([]int, 0)
	skipped := 0

	for _, r := range table.ByClass(class) {
		k := key{r.City, r.StateCode}
		i, ok := index[k]
		if !ok {
			coord, found := g.Locate(r.City, r.StateCode)
			if !found {
				skipped++
				continue
			}
			i = len(points)
			index[k] = i
			points = append(points, MapPoint{
				City:       r.City,
				StateCode:  r.StateCode,
				Region:     r.Region,
				Coordinate: coord,
			})
			counts = append(counts, 0)
		}
		points[i].Price += r.PriceMean
		points[i].Stations += r.StationsSurveyed
		counts[i]++
	}

	for i := range points {
		points[i].Price /= float64(counts[i])
	}
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	return points, skipped
}
