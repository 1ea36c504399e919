package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/courtclips/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// StatsFunc reports the current browser pool state.
type StatsFunc func() models.PoolStats

// Health returns a handler for GET /healthz.
//
// Reports pool utilisation and degrades status when > 80% of browsers are busy.
func Health(stats StatsFunc, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := stats()

		status := "healthy"
		if s.MaxBrowsers > 0 && s.InUse > int(float64(s.MaxBrowsers)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: s,
			Version:   Version,
		})
	}
}
