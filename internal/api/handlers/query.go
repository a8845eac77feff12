package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/fuelmetrics/fuelmetrics-api/internal/geo"
	"github.com/fuelmetrics/fuelmetrics-api/internal/models"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
)

const (
	defaultRankingLimit = 10
	maxListLimit        = 100
)

// SnapshotSource is the read side of the ingestion service.
type SnapshotSource interface {
	Current() (*pipeline.Snapshot, bool)
	IsStale(now time.Time) bool
}

// QueryHandler serves the public price queries over the published snapshot.
type QueryHandler struct {
	source   SnapshotSource
	geocoder *geo.Geocoder
	policy   analytics.ReliabilityPolicy
	now      func() time.Time
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(source SnapshotSource, geocoder *geo.Geocoder, policy analytics.ReliabilityPolicy) *QueryHandler {
	if geocoder == nil {
		geocoder = geo.NewGeocoder()
	}
	return &QueryHandler{
		source:   source,
		geocoder: geocoder,
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// queryResult wraps every query answer with the age of the data behind it.
type queryResult struct {
	RunID    string      `json:"run_id"`
	DataAsOf time.Time   `json:"data_as_of"`
	Stale    bool        `json:"stale"`
	Result   interface{} `json:"result"`
}

// snapshot loads the current snapshot or writes a 503 and returns false.
func (h *QueryHandler) snapshot(c *gin.Context) (*pipeline.Snapshot, bool) {
	snap, ok := h.source.Current()
	if !ok {
		response.NoData(c)
		return nil, false
	}
	return snap, true
}

func (h *QueryHandler) respond(c *gin.Context, snap *pipeline.Snapshot, result interface{}) {
	response.Success(c, 200, queryResult{
		RunID:    snap.RunID.String(),
		DataAsOf: snap.IngestedAt,
		Stale:    h.source.IsStale(h.now()),
		Result:   result,
	})
}

// fuelType reads the fuel_type query parameter, defaulting to gasoline.
func fuelType(c *gin.Context) (models.ProductClass, bool) {
	raw := c.Query("fuel_type")
	if raw == "" {
		return models.ClassGasolina, true
	}
	class, ok := models.ParseProductClass(raw)
	if !ok {
		response.BadRequest(c, fmt.Sprintf("unknown fuel_type %q", raw),
			gin.H{"allowed": allowedFuelTypes()})
		return "", false
	}
	return class, true
}

func allowedFuelTypes() []string {
	out := make([]string, 0, len(models.ProductClasses))
	for _, pc := range models.ProductClasses {
		out = append(out, strings.ToLower(string(pc)))
	}
	return out
}

// intQuery parses an optional positive integer parameter capped at max.
func intQuery(c *gin.Context, name string, def, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		response.BadRequest(c, fmt.Sprintf("%s must be a positive integer", name), nil)
		return 0, false
	}
	if max > 0 && v > max {
		v = max
	}
	return v, true
}

// floatQuery parses a required float parameter.
func floatQuery(c *gin.Context, name string) (float64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		response.BadRequest(c, fmt.Sprintf("%s is required", name), nil)
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		response.BadRequest(c, fmt.Sprintf("%s must be a number", name), nil)
		return 0, false
	}
	return v, true
}

// cityList splits the comma-separated cities parameter.
func cityList(c *gin.Context) []string {
	var out []string
	for _, part := range strings.Split(c.Query("cities"), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
