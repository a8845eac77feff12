package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fuelmetrics/fuelmetrics-api/internal/analytics"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/handlers"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/middleware"
	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/fuelmetrics/fuelmetrics-api/internal/config"
	"github.com/fuelmetrics/fuelmetrics-api/internal/geo"
	"github.com/fuelmetrics/fuelmetrics-api/pkg/auth"
)

const serviceName = "fuelmetrics-api"

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(svc handlers.IngestionService, geocoder *geo.Geocoder, cfg *config.Config) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins...))
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.StructuredLogging())

	r.GET("/health", func(c *gin.Context) {
		_, loaded := svc.Current()
		c.JSON(200, gin.H{
			"status":      "healthy",
			"service":     serviceName,
			"data_loaded": loaded,
		})
	})

	queryHandler := handlers.NewQueryHandler(svc, geocoder, analytics.DefaultReliabilityPolicy())
	ingestionHandler := handlers.NewIngestionHandler(svc, cfg.Upload.MaxFileSize)

	// Public price queries
	v1 := r.Group("/api/v1")
	{
		v1.GET("/prices/best", queryHandler.HandleBestPrice)
		v1.GET("/prices/worst", queryHandler.HandleWorstPrice)
		v1.GET("/prices/ranking", queryHandler.HandleRanking)
		v1.GET("/prices/summary", queryHandler.HandleSummary)

		v1.GET("/regions", queryHandler.HandleRegions)

		v1.GET("/trend/analysis", queryHandler.HandleTrend)
		v1.GET("/trend/volatility", queryHandler.HandleVolatility)

		v1.GET("/compare/cities", queryHandler.HandleCompareCities)
		v1.GET("/compare/recommendation", queryHandler.HandleRecommendation)
		v1.GET("/compare/nearby", queryHandler.HandleNearby)

		v1.GET("/cities/search", queryHandler.HandleSearchCities)
		v1.GET("/stats", queryHandler.HandleStats)
		v1.GET("/simulator/trip", queryHandler.HandleTripSimulation)
		v1.GET("/map/points", queryHandler.HandleMapPoints)
	}

	// Ingestion administration, admin role only
	admin := r.Group("/api/v1/ingestions")
	admin.Use(middleware.AuthMiddleware(&cfg.JWT), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.POST("", ingestionHandler.HandleUpload)
		admin.POST("/refresh", ingestionHandler.HandleRefresh)
		admin.GET("", ingestionHandler.HandleListRuns)
		admin.GET("/current", ingestionHandler.HandleCurrent)
		admin.GET("/:run_id", ingestionHandler.HandleGetRun)
	}

	if cfg.Server.Env != "production" {
		r.POST("/dev/token", devTokenHandler(cfg))
	}

	return r
}

// devTokenHandler returns a handler that generates test JWTs for development.
func devTokenHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request", nil)
			return
		}

		userID := uuid.New()
		if req.UserID != "" {
			parsed, err := uuid.Parse(req.UserID)
			if err != nil {
				response.BadRequest(c, "invalid user_id", nil)
				return
			}
			userID = parsed
		}
		if req.Role == "" {
			req.Role = auth.RoleAdmin
		}

		token, err := auth.GenerateToken(cfg.JWT.Secret, cfg.JWT.Issuer, userID, req.Role, cfg.JWT.ExpiryHours)
		if err != nil {
			response.InternalError(c, "failed to generate token")
			return
		}

		response.Success(c, 200, gin.H{"token": token, "user_id": userID})
	}
}
