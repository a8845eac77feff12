package middleware

import (
	"slices"

	"github.com/fuelmetrics/fuelmetrics-api/internal/api/response"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through only when the role placed by
// AuthMiddleware is one of allowedRoles.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" || !slices.Contains(allowedRoles, role) {
			response.Forbidden(c, "role cannot manage ingestion runs")
			c.Abort()
			return
		}
		c.Next()
	}
}
