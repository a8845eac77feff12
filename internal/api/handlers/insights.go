package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
)

// HandleRegions handles GET /api/v1/regions.
func (h *QueryHandler) HandleRegions(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	h.respond(c, snap, gin.H{
		"product_class": class,
		"regions":       analytics.RegionStats(snap.Table, class),
	})
}

// HandleTrend handles GET /api/v1/trend/analysis.
func (h *QueryHandler) HandleTrend(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	lookback := 0
	if raw := c.Query("lookback_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "lookback_days must be an integer", nil)
			return
		}
		lookback = v
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	trend, found := analytics.Trend(snap.Table, class, lookback)
	if !found {
		response.NotFound(c, "no prices for fuel type "+string(class))
		return
	}
	h.respond(c, snap, trend)
}

// HandleVolatility handles GET /api/v1/trend/volatility.
func (h *QueryHandler) HandleVolatility(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	vol, found := analytics.Volatility(snap.Table, class)
	if !found {
		response.NotFound(c, "no prices for fuel type "+string(class))
		return
	}
	h.respond(c, snap, vol)
}

// HandleStats handles GET /api/v1/stats.
func (h *QueryHandler) HandleStats(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	stats, found := analytics.Describe(snap.Table)
	if !found {
		response.NotFound(c, "snapshot has no records")
		return
	}
	h.respond(c, snap, gin.H{
		"dataset":     stats,
		"drop_report": snap.Report,
		"header_row":  snap.HeaderRow,
	})
}

// HandleMapPoints handles GET /api/v1/map/points.
func (h *QueryHandler) HandleMapPoints(c *gin.Context) {
	class, ok := fuelType(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0, 0)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	points, skipped := h.geocoder.MapPoints(snap.Table, class, limit)
	h.respond(c, snap, gin.H{
		"product_class": class,
		"points":        points,
		"skipped_rows":  skipped,
	})
}
