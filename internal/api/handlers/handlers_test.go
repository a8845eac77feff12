package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/geo"
	"github.com/fuelmetrics/fuelmetrics-api/internal/ingest"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
)

const csvHeader = "MUNICÍPIO;ESTADO;PRODUTO;NÚMERO DE POSTOS PESQUISADOS;PREÇO MÉDIO REVENDA\n"

func spreadsheet(rows ...string) []byte {
	return []byte("LEVANTAMENTO DE PREÇOS\nSEMANA DE 03/03/2024 A 09/03/2024\n" + csvHeader + strings.Join(rows, "\n") + "\n")
}

var weekly = spreadsheet(
	"SAO PAULO;SP;GASOLINA COMUM;20;5,10",
	"CAMPINAS;SP;GASOLINA COMUM;15;4,99",
	"SANTOS;SP;GASOLINA COMUM;12;5,30",
	"RIO DE JANEIRO;RJ;GASOLINA COMUM;25;5,60",
	"SALVADOR;BAHIA;ETANOL HIDRATADO;12;3,89",
)

// envelope mirrors response.Envelope with the data left raw.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type queryEnvelope struct {
	RunID    string          `json:"run_id"`
	DataAsOf time.Time       `json:"data_as_of"`
	Stale    bool            `json:"stale"`
	Result   json.RawMessage `json:"result"`
}

func newTestService(t *testing.T, raw []byte) *pipeline.Service {
	t.Helper()
	store := pipeline.NewMemoryStore()
	ing := ingest.New(ingest.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	svc := pipeline.NewService(ing, store, store, nil, pipeline.Config{StaleAfter: 24 * time.Hour})
	if raw != nil {
		_, _, err := svc.IngestBytes(context.Background(), raw, "test")
		require.NoError(t, err)
	}
	return svc
}

func queryRouter(svc SnapshotSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewQueryHandler(svc, geo.NewGeocoder(), analytics.DefaultReliabilityPolicy())
	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.GET("/prices/best", h.HandleBestPrice)
	v1.GET("/prices/worst", h.HandleWorstPrice)
	v1.GET("/prices/ranking", h.HandleRanking)
	v1.GET("/prices/summary", h.HandleSummary)
	v1.GET("/regions", h.HandleRegions)
	v1.GET("/trend/analysis", h.HandleTrend)
	v1.GET("/trend/volatility", h.HandleVolatility)
	v1.GET("/compare/cities", h.HandleCompareCities)
	v1.GET("/compare/recommendation", h.HandleRecommendation)
	v1.GET("/compare/nearby", h.HandleNearby)
	v1.GET("/cities/search", h.HandleSearchCities)
	v1.GET("/stats", h.HandleStats)
	v1.GET("/simulator/trip", h.HandleTripSimulation)
	v1.GET("/map/points", h.HandleMapPoints)
	return r
}

func ingestionRouter(svc IngestionService, maxSize int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewIngestionHandler(svc, maxSize)
	r := gin.New()
	g := r.Group("/api/v1/ingestions")
	g.POST("", h.HandleUpload)
	g.POST("/refresh", h.HandleRefresh)
	g.GET("", h.HandleListRuns)
	g.GET("/current", h.HandleCurrent)
	g.GET("/:run_id", h.HandleGetRun)
	return r
}

func get(t *testing.T, r http.Handler, path string) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

// result unpacks the query payload of a successful response into out.
func result(t *testing.T, env envelope, out interface{}) queryEnvelope {
	t.Helper()
	var q queryEnvelope
	require.NoError(t, json.Unmarshal(env.Data, &q))
	require.NoError(t, json.Unmarshal(q.Result, out))
	return q
}

func upload(t *testing.T, r http.Handler, filename string, raw []byte) (int, envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(raw)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingestions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}
