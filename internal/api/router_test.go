package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelmetrics/fuelmetrics-api/internal/config"
	"github.com/fuelmetrics/fuelmetrics-api/internal/geo"
	"github.com/fuelmetrics/fuelmetrics-api/internal/ingest"
	"github.com/fuelmetrics/fuelmetrics-api/internal/pipeline"
	"github.com/fuelmetrics/fuelmetrics-api/pkg/auth"
)

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Env = "test"
	cfg.JWT = config.JWTConfig{Secret: "router-test-secret", Issuer: "fuelmetrics", ExpiryHours: 1}
	return cfg
}

func testRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store := pipeline.NewMemoryStore()
	svc := pipeline.NewService(ingest.New(ingest.Options{}), store, store, nil, pipeline.Config{})
	return NewRouter(svc, geo.NewGeocoder(), cfg)
}

func token(t *testing.T, cfg *config.Config, role string) string {
	t.Helper()
	tok, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, uuid.New(), role, 1)
	require.NoError(t, err)
	return tok
}

func TestRouter_Health(t *testing.T) {
	r := testRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service":"fuelmetrics-api"`)
	assert.Contains(t, w.Body.String(), `"data_loaded":false`)
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestRouter_PublicQueriesNeedNoToken(t *testing.T) {
	r := testRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/prices/best", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NO_DATA_AVAILABLE")
}

func TestRouter_AdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	r := testRouter(t, cfg)

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"viewer", "Bearer " + token(t, cfg, auth.RoleViewer), http.StatusForbidden},
		{"admin", "Bearer " + token(t, cfg, auth.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ingestions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRouter_DevToken(t *testing.T) {
	cfg := testConfig()
	r := testRouter(t, cfg)

	body := bytes.NewBufferString(`{"role":"viewer"}`)
	req := httptest.NewRequest(http.MethodPost, "/dev/token", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var env struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	claims, err := auth.ValidateToken(env.Data.Token, cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleViewer, claims.Role)

	req = httptest.NewRequest(http.MethodPost, "/dev/token", strings.NewReader(`{"user_id":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_DevTokenDisabledInProduction(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Env = "production"
	r := testRouter(t, cfg)
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/dev/token", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
