package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// StructuredLogging logs every request through the default slog logger.
func StructuredLogging() gin.HandlerFunc {
	return LoggingMiddleware(slog.Default(), "fuelmetrics-api")
}

// LoggingMiddleware emits one record per request once the handler chain has
// finished, so status, route and caller identity are all known.
func LoggingMiddleware(logger *slog.Logger, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		outcome, level := classifyStatus(status)

		attrs := []slog.Attr{
			slog.String("service", serviceName),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", c.FullPath()),
			slog.Int("status_code", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			slog.String("outcome", outcome),
		}
		if id := c.GetString(ContextCorrelationID); id != "" {
			attrs = append(attrs, slog.String("correlation_id", id))
		}
		if userID, ok := c.Get(ContextUserID); ok {
			attrs = append(attrs, slog.Any("user_id", userID))
		}

		logger.LogAttrs(c.Request.Context(), level, "request processed", attrs...)
	}
}

func classifyStatus(status int) (string, slog.Level) {
	switch {
	case status >= 500:
		return "server_error", slog.LevelError
	case status >= 400:
		return "client_error", slog.LevelWarn
	case status >= 200 && status < 300:
		return "success", slog.LevelInfo
	default:
		return "unknown", slog.LevelInfo
	}
}
