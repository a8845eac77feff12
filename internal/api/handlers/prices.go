package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/fuelmetrics/fuelmetrics-api/internal/geo"
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
)

// pricePoint is a best/worst answer with the city's approximate location.
type pricePoint struct {
	analytics.PriceResult
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
}

func (h *QueryHandler) locate(res analytics.PriceResult) pricePoint {
	p := pricePoint{PriceResult: res}
	if coord, ok := h.geocoder.Locate(res.City, res.StateCode); ok {
		p.Coordinate = &coord
	}
	return p
}

// HandleBestPrice handles GET /api/v1/prices/best.
func (h *QueryHandler) HandleBestPrice(c *gin.Context) {
	h.extreme(c, analytics.BestPrice)
}

// HandleWorstPrice handles GET /api/v1/prices/worst.
func (h *QueryHandler) HandleWorstPrice(c *gin.Context) {
	h.extreme(c, analytics.WorstPrice)
}

type extremeFunc func(*models.CanonicalTable, models.ProductClass, analytics.ReliabilityPolicy) (analytics.PriceResult, bool)

func (h *QueryHandler) extreme(c *gin.Context, fn extremeFunc) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	res, found := fn(snap.Table, class, h.policy)
	if !found {
		response.NotFound(c, "no prices for fuel type "+string(class))
		return
	}
	h.respond(c, snap, h.locate(res))
}

// HandleRanking handles GET /api/v1/prices/ranking.
func (h *QueryHandler) HandleRanking(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", defaultRankingLimit, maxListLimit)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	ranking := analytics.Ranking(snap.Table, class, limit, h.policy)
	h.respond(c, snap, gin.H{
		"product_class": class,
		"ranking":       ranking,
	})
}

// HandleSummary handles GET /api/v1/prices/summary.
func (h *QueryHandler) HandleSummary(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	summary, found := analytics.Summarize(snap.Table, class, h.policy)
	if !found {
		response.NotFound(c, "no prices for fuel type "+string(class))
		return
	}
	h.respond(c, snap, summary)
}
