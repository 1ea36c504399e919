package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/courtclips/clips"
	"github.com/use-agent/courtclips/config"
	"github.com/use-agent/courtclips/models"
	"github.com/use-agent/courtclips/scraper"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubRenderer serves canned markup keyed by URL.
type stubRenderer struct {
	pages map[string]string
	fail  map[string]error
	calls int
}

func (s *stubRenderer) Render(_ context.Context, url string, _ scraper.RenderOptions) (*scraper.RenderResult, error) {
	s.calls++
	if err, ok := s.fail[url]; ok {
		return nil, err
	}
	return &scraper.RenderResult{HTML: s.pages[url], FinalURL: url}, nil
}

func newService(t *testing.T, r clips.Renderer) *clips.Service {
	t.Helper()
	svc, err := clips.NewService(r, config.ScraperConfig{
		ListingURL:  "https://www.nba.com/games?date={date}",
		GameURL:     "https://www.nba.com/game/{slug}/play-by-play",
		SettleMode:  "fixed",
		SettleDelay: 0,
	}, nil)
	require.NoError(t, err)
	return svc
}

func serve(h gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/api/videos", h)
	r.GET("/healthz", h)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestVideos_MissingDate(t *testing.T) {
	r := &stubRenderer{}
	svc := newService(t, r)

	for _, target := range []string{"/api/videos", "/api/videos?date="} {
		rec := serve(Videos(svc), target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.JSONEq(t, `{"error":"date query parameter required"}`, rec.Body.String(), target)
	}
	assert.Zero(t, r.calls, "scraper must not run without a date")
}

func TestVideos_PartialFailure(t *testing.T) {
	r := &stubRenderer{
		pages: map[string]string{
			"https://www.nba.com/games?date=2024-01-15": `
				<a href="/game/lal-vs-bos-0022300600">LAL @ BOS</a>
				<a href="/game/nyk-vs-mia-0022300601">NYK @ MIA</a>`,
			"https://www.nba.com/game/lal-vs-bos-0022300600/play-by-play": `
				<video src="https://videos.nba.com/lal-bos/dunk.mp4"></video>`,
		},
		fail: map[string]error{
			"https://www.nba.com/game/nyk-vs-mia-0022300601/play-by-play": models.NewRenderError(
				models.ErrCodeTimeout, "", "page did not become ready", context.DeadlineExceeded),
		},
	}

	rec := serve(Videos(newService(t, r)), "/api/videos?date=2024-01-15")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"date": "2024-01-15",
		"games": [
			{"gameId": "0022300600", "slug": "lal-vs-bos-0022300600", "videos": ["https://videos.nba.com/lal-bos/dunk.mp4"]},
			{"gameId": "0022300601", "slug": "nyk-vs-mia-0022300601", "videos": []}
		]
	}`, rec.Body.String())
}

func TestVideos_NoGames(t *testing.T) {
	r := &stubRenderer{pages: map[string]string{
		"https://www.nba.com/games?date=2024-07-04": "<html></html>",
	}}

	rec := serve(Videos(newService(t, r)), "/api/videos?date=2024-07-04")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"date":"2024-07-04","games":[]}`, rec.Body.String())
}

func TestVideos_DiscoveryFailure(t *testing.T) {
	renderErr := models.NewRenderError(models.ErrCodeNavigation,
		"https://www.nba.com/games?date=2024-01-15", "navigation to target URL failed",
		errors.New("net::ERR_CONNECTION_RESET"))
	r := &stubRenderer{fail: map[string]error{
		"https://www.nba.com/games?date=2024-01-15": renderErr,
	}}

	rec := serve(Videos(newService(t, r)), "/api/videos?date=2024-01-15")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, renderErr.Error(), body.Error)
	assert.Equal(t, 1, r.calls, "no extraction after a failed discovery")
}

func TestVideos_Overloaded(t *testing.T) {
	r := &stubRenderer{fail: map[string]error{
		"https://www.nba.com/games?date=2024-01-15": models.NewRenderError(
			models.ErrCodeOverloaded, "", "no browser available", nil),
	}}

	rec := serve(Videos(newService(t, r)), "/api/videos?date=2024-01-15")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"OVERLOADED: no browser available"}`, rec.Body.String())
}

func TestMapErrorToStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, mapErrorToStatus(models.NewValidationError("date", "x")))
	assert.Equal(t, http.StatusServiceUnavailable,
		mapErrorToStatus(models.NewRenderError(models.ErrCodeOverloaded, "", "", nil)))
	assert.Equal(t, http.StatusInternalServerError,
		mapErrorToStatus(models.NewRenderError(models.ErrCodeTimeout, "", "", nil)))
	assert.Equal(t, http.StatusInternalServerError, mapErrorToStatus(errors.New("plain")))
}

func TestHealth(t *testing.T) {
	cases := []struct {
		name   string
		stats  models.PoolStats
		status string
	}{
		{"idle", models.PoolStats{MaxBrowsers: 5, LiveBrowsers: 1}, "healthy"},
		{"at 80%", models.PoolStats{MaxBrowsers: 5, LiveBrowsers: 4, InUse: 4}, "healthy"},
		{"busy", models.PoolStats{MaxBrowsers: 5, LiveBrowsers: 5, InUse: 5, Waiting: 2}, "degraded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats := func() models.PoolStats { return tc.stats }
			rec := serve(Health(stats, time.Now()), "/healthz")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp models.HealthResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.status, resp.Status)
			assert.Equal(t, tc.stats, resp.PoolStats)
			assert.Equal(t, Version, resp.Version)
		})
	}
}
