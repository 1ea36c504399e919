package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/courtclips/models"
)

// RequestIDKey is the gin context key holding the request ID.
const RequestIDKey = "request_id"

// VideoScraper runs discovery and extraction for one date.
type VideoScraper interface {
	Scrape(ctx context.Context, date string) ([]models.GameResult, error)
}

// Videos returns a handler for GET /api/videos?date=.
//
// Orchestration flow:
//  1. Validate the date parameter (presence only; the value is passed through).
//  2. Scrape → discovery, then per-game extraction.
//  3. Respond 200 with the date echoed back.
func Videos(svc VideoScraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		// ── 1. Validate ─────────────────────────────────────────────
		date := c.Query("date")
		if date == "" {
			respondError(c, models.NewValidationError("date", "date query parameter required"))
			return
		}

		// ── 2. Scrape ───────────────────────────────────────────────
		games, err := svc.Scrape(c.Request.Context(), date)
		if err != nil {
			slog.Error("scrape failed",
				"date", date,
				"error", err,
				"request_id", c.GetString(RequestIDKey),
			)
			respondError(c, err)
			return
		}

		// ── 3. Respond ──────────────────────────────────────────────
		slog.Info("videos served",
			"date", date,
			"games", len(games),
			"elapsed_ms", time.Since(start).Milliseconds(),
			"request_id", c.GetString(RequestIDKey),
		)
		c.JSON(http.StatusOK, models.VideosResponse{Date: date, Games: games})
	}
}

// respondError maps err to an HTTP status code and writes the JSON error body.
func respondError(c *gin.Context, err error) {
	c.JSON(mapErrorToStatus(err), models.ErrorResponse{Error: err.Error()})
}

// mapErrorToStatus translates typed errors to HTTP status codes.
func mapErrorToStatus(err error) int {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest // 400
	}
	var re *models.RenderError
	if errors.As(err, &re) && re.Code == models.ErrCodeOverloaded {
		return http.StatusServiceUnavailable // 503
	}
	return http.StatusInternalServerError // 500
}
