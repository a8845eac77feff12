package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
)

const (
	defaultNearbyLimit = 5
	defaultSearchLimit = 20
	minSearchLength    = 2
)

// comparison runs CompareCities for the request, writing the error response
// itself when the comparison cannot be made.
func (h *QueryHandler) comparison(c *gin.Context) (*pipeline.Snapshot, analytics.Comparison, bool) {
	class, ok := fuelType(c)
	if !ok {
		return nil, analytics.Comparison{}, false
	}
	cities := cityList(c)
	if len(cities) < 2 {
		response.BadRequest(c, "cities must name at least two cities", nil)
		return nil, analytics.Comparison{}, false
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return nil, analytics.Comparison{}, false
	}

	cmp, found := analytics.CompareCities(snap.Table, class, cities)
	if !found {
		response.Error(c, 404, "NOT_FOUND", "fewer than two of the requested cities have prices",
			gin.H{"not_found": cmp.NotFound})
		return nil, analytics.Comparison{}, false
	}
	return snap, cmp, true
}

// HandleCompareCities handles GET /api/v1/compare/cities.
func (h *QueryHandler) HandleCompareCities(c *gin.Context) {
	snap, cmp, ok := h.comparison(c)
	if !ok {
		return
	}
	h.respond(c, snap, cmp)
}

// HandleRecommendation handles GET /api/v1/compare/recommendation.
func (h *QueryHandler) HandleRecommendation(c *gin.Context) {
	snap, cmp, ok := h.comparison(c)
	if !ok {
		return
	}

	rec, found := analytics.Recommend(cmp)
	if !found {
		response.NotFound(c, "not enough cities to recommend")
		return
	}
	h.respond(c, snap, rec)
}

// HandleNearby handles GET /api/v1/compare/nearby.
func (h *QueryHandler) HandleNearby(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	city := c.Query("city")
	if city == "" {
		response.BadRequest(c, "city is required", nil)
		return
	}
	limit, ok := intQuery(c, "limit", defaultNearbyLimit, maxListLimit)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	res, found := analytics.Nearby(snap.Table, class, city, c.Query("state"), limit)
	if !found {
		response.NotFound(c, "city not found for fuel type "+string(class))
		return
	}

	out := gin.H{"nearby": res}
	if coord, ok := h.geocoder.Locate(res.City, res.StateCode); ok {
		out["coordinate"] = coord
	}
	h.respond(c, snap, out)
}

// HandleSearchCities handles GET /api/v1/cities/search.
func (h *QueryHandler) HandleSearchCities(c *gin.Context) {
	query := c.Query("q")
	if len([]rune(query)) < minSearchLength {
		response.BadRequest(c, "q must have at least 2 characters", nil)
		return
	}
	limit, ok := intQuery(c, "limit", defaultSearchLimit, maxListLimit)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	h.respond(c, snap, gin.H{
		"query":   query,
		"matches": analytics.SearchCities(snap.Table, query, limit),
	})
}

// HandleTripSimulation handles GET /api/v1/simulator/trip. The price is
// optional: it is looked up only when a city is given.
func (h *QueryHandler) HandleTripSimulation(c *gin.Context) {
	var params analytics.TripParams
	var ok bool
	if params.TankCapacity, ok = floatQuery(c, "tank_capacity"); !ok {
		return
	}
	if params.CurrentLevel, ok = floatQuery(c, "current_level"); !ok {
		return
	}
	if params.Consumption, ok = floatQuery(c, "consumption"); !ok {
		return
	}
	if params.Distance, ok = floatQuery(c, "distance"); !ok {
		return
	}
	class, ok := fuelType(c)
	if !ok {
		return
	}

	city := c.Query("city")
	var price *float64
	snap, haveSnap := h.source.Current()
	if city != "" && haveSnap {
		if p, found := analytics.CityPrice(snap.Table, class, city); found {
			price = &p
		}
	}

	res, err := analytics.SimulateTrip(params, price)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidTrip) {
			response.BadRequest(c, err.Error(), nil)
			return
		}
		response.InternalError(c, "trip simulation failed")
		return
	}

	if !haveSnap {
		response.Success(c, 200, gin.H{"result": res})
		return
	}
	h.respond(c, snap, res)
}
