package middleware

import (
	"strings"

	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/fuelmetrics/fuelmetrics-api/internal/config"
	"github.com/fuelmetrics/fuelmetrics-api/pkg/auth"
	"github.com/gin-gonic/gin"
)

// Context keys set by AuthMiddleware for the admin ingestion routes.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// AuthMiddleware guards the admin ingestion routes with a bearer JWT.
// Public price queries never pass through it.
func AuthMiddleware(cfg *config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "ingestion endpoints require a bearer token")
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(token, cfg.Secret)
		if err != nil {
			response.Unauthorized(c, "bearer token rejected")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}
