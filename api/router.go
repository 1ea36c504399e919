package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/courtclips/api/handler"
	"github.com/use-agent/courtclips/api/middleware"
	"github.com/use-agent/courtclips/config"
	"github.com/use-agent/courtclips/metrics"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → RequestLogger
func NewRouter(svc handler.VideoScraper, stats handler.StatsFunc, m *metrics.Metrics, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())

	r.GET("/api/videos", handler.Videos(svc))
	r.GET("/healthz", handler.Health(stats, startTime))
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return r
}
