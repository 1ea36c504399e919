package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/use-agent/courtclips/config"
	"github.com/use-agent/courtclips/engine"
	"github.com/use-agent/courtclips/models"
)

const playByPlayHTML = `<!doctype html>
<html><head><title>LAL @ BOS</title></head>
<body><video src="https://videos.nba.com/lal-bos/dunk.mp4"></video></body></html>`

const loadingHTML = `<!doctype html>
<html><head><title>loading</title></head><body><div>loading</div></body></html>`

// newBrowserScraper starts a one-browser Scraper, skipping when no
// Chromium is installed.
func newBrowserScraper(t *testing.T) *Scraper {
	t.Helper()
	bin, found := launcher.LookPath()
	if !found {
		t.Skip("no Chromium found, skipping browser test")
	}

	sc, err := NewScraper(config.BrowserConfig{
		Headless:             true,
		NoSandbox:            true,
		BrowserBin:           bin,
		UserAgent:            config.DefaultUserAgent,
		Referer:              "https://www.nba.com/",
		Stealth:              true,
		BlockedResourceTypes: []string{"Image", "Font", "Media"},
	}, config.PoolConfig{MinBrowsers: 1, MaxBrowsers: 1, MaxQueue: 4}, 20*time.Second)
	if err != nil {
		t.Fatalf("NewScraper: %v", err)
	}
	t.Cleanup(sc.Close)
	return sc
}

// openPages returns the URLs of all page targets in the pooled browser.
func openPages(t *testing.T, sc *Scraper) []string {
	t.Helper()
	h, err := sc.pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer sc.pool.Release(h, engine.Healthy)

	pages, err := h.Value.browser.Pages()
	if err != nil {
		t.Fatalf("Pages: %v", err)
	}
	var urls []string
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		urls = append(urls, info.URL)
	}
	return urls
}

// assertTornDown checks that the worker went back to the pool and that no
// page the render opened is still alive.
func assertTornDown(t *testing.T, sc *Scraper, baseline int, prefix string) {
	t.Helper()
	if got := sc.Stats().InUse; got != 0 {
		t.Errorf("InUse = %d after Render, want 0", got)
	}
	urls := openPages(t, sc)
	if len(urls) != baseline {
		t.Errorf("open pages = %d (%v), want %d", len(urls), urls, baseline)
	}
	for _, u := range urls {
		if prefix != "" && strings.HasPrefix(u, prefix) {
			t.Errorf("page %s still open after Render", u)
		}
	}
}

func TestRender_Lifecycle(t *testing.T) {
	sc := newBrowserScraper(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/game":
			fmt.Fprint(w, playByPlayHTML)
		default:
			fmt.Fprint(w, loadingHTML)
		}
	}))
	defer srv.Close()

	// Closed port for the navigation failure.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	deadURL := "http://" + ln.Addr().String() + "/"
	ln.Close()

	baseline := len(openPages(t, sc))
	videoProbe := PatternProbe(regexp.MustCompile(`https:[^"']+\.mp4`))

	t.Run("success", func(t *testing.T) {
		res, err := sc.Render(context.Background(), srv.URL+"/game", RenderOptions{
			Readiness: ReadyDOMContentLoaded,
			Settle:    &Settle{MaxWait: 2 * time.Second, Interval: 50 * time.Millisecond, Probe: videoProbe},
		})
		if err != nil {
			t.Fatalf("Render: %v", err)
		}
		if !strings.Contains(res.HTML, "https://videos.nba.com/lal-bos/dunk.mp4") {
			t.Errorf("rendered HTML is missing the video URL: %s", res.HTML)
		}
		if res.Title != "LAL @ BOS" {
			t.Errorf("Title = %q, want %q", res.Title, "LAL @ BOS")
		}
		if !strings.HasPrefix(res.FinalURL, srv.URL) {
			t.Errorf("FinalURL = %q, want prefix %q", res.FinalURL, srv.URL)
		}
		assertTornDown(t, sc, baseline, srv.URL)
	})

	t.Run("navigation error", func(t *testing.T) {
		_, err := sc.Render(context.Background(), deadURL, RenderOptions{Readiness: ReadyDOMContentLoaded})
		var re *models.RenderError
		if !errors.As(err, &re) {
			t.Fatalf("expected RenderError, got %v", err)
		}
		if re.Code != models.ErrCodeNavigation {
			t.Errorf("code = %s, want %s", re.Code, models.ErrCodeNavigation)
		}
		assertTornDown(t, sc, baseline, deadURL)
	})

	t.Run("deadline during settle", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
		defer cancel()

		_, err := sc.Render(ctx, srv.URL+"/loading", RenderOptions{
			Readiness: ReadyDOMContentLoaded,
			Settle:    &Settle{MaxWait: 10 * time.Second, Interval: 50 * time.Millisecond, Probe: videoProbe},
		})
		var re *models.RenderError
		if !errors.As(err, &re) {
			t.Fatalf("expected RenderError, got %v", err)
		}
		if re.Code != models.ErrCodeTimeout {
			t.Errorf("code = %s, want %s", re.Code, models.ErrCodeTimeout)
		}
		assertTornDown(t, sc, baseline, srv.URL)
	})

	if got := sc.Stats().LiveBrowsers; got != 1 {
		t.Errorf("LiveBrowsers = %d, want the single worker reused", got)
	}
}
