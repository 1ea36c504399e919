package models

// Game identifies one game on the source site.
type Game struct {
	// GameID is the 10-digit identifier at the tail of Slug, or Slug itself.
	GameID string `json:"gameId"`

	// Slug is the path segment after /game/ on the source site.
	Slug string `json:"slug"`
}

// GameResult is a Game together with the video URLs found on its
// play-by-play page, in first-seen order.
type GameResult struct {
	Game
	Videos []string `json:"videos"`
}

// VideosResponse is the response for GET /api/videos.
type VideosResponse struct {
	Date  string       `json:"date"`
	Games []GameResult `json:"games"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status    string    `json:"status"` // "healthy" or "degraded"
	Uptime    string    `json:"uptime"`
	PoolStats PoolStats `json:"pool_stats"`
	Version   string    `json:"version"`
}

// PoolStats reports the state of the browser worker pool.
type PoolStats struct {
	MaxBrowsers  int `json:"max_browsers"`
	LiveBrowsers int `json:"live_browsers"`
	InUse        int `json:"in_use"`
	Waiting      int `json:"waiting"`
}
