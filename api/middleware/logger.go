package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/courtclips/api/handler"
)

// RequestLogger logs each request with method, path, status, duration_ms,
// size and request_id once the handler chain has finished.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int("duration_ms", int(time.Since(start).Milliseconds())),
			slog.Int("size", c.Writer.Size()),
			slog.String("request_id", c.GetString(handler.RequestIDKey)),
		)
	}
}
