package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextCorrelationID is the gin context key holding the request's correlation id.
const ContextCorrelationID = "correlation_id"

const (
	correlationHeader  = "X-Correlation-ID"
	maxCorrelationSize = 128
)

// CorrelationMiddleware reuses the caller's X-Correlation-ID when it looks
// sane and otherwise issues a fresh UUID. The id is stored under
// "correlation_id" and echoed back in the response header.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(correlationHeader)
		if !validCorrelationID(correlationID) {
			correlationID = uuid.New().String()
		}

		c.Set(ContextCorrelationID, correlationID)
		c.Header(correlationHeader, correlationID)

		c.Next()
	}
}

// validCorrelationID accepts short printable ASCII tokens so the value can
// go into logs and headers unescaped.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationSize {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
