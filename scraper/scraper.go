package scraper

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/courtclips/config"
	"github.com/use-agent/courtclips/engine"
	"github.com/use-agent/courtclips/models"
)

// worker is one headless browser process owned by the pool.
type worker struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// Scraper renders pages in pooled browser processes. Every render gets its
// own incognito context, so no cookies, cache or storage cross renders.
// It is safe for concurrent use.
type Scraper struct {
	pool          *engine.Pool[*worker]
	browserCfg    config.BrowserConfig
	renderTimeout time.Duration
	blocked       map[proto.NetworkResourceType]struct{}
}

// NewScraper starts the browser pool and warms MinBrowsers workers.
// It fails if warm-up was requested and no browser could be launched.
func NewScraper(browserCfg config.BrowserConfig, poolCfg config.PoolConfig, renderTimeout time.Duration) (*Scraper, error) {
	pool := engine.NewPool[*worker](engine.PoolConfig{
		MinSize:  poolCfg.MinBrowsers,
		MaxSize:  poolCfg.MaxBrowsers,
		MaxQueue: poolCfg.MaxQueue,
		MaxUses:  poolCfg.MaxUses,
		MaxAge:   poolCfg.MaxAge,
		IdleTTL:  poolCfg.IdleTTL,
	}, func() (*worker, error) {
		return launchWorker(browserCfg)
	}, destroyWorker)

	if poolCfg.MinBrowsers > 0 && pool.Size() == 0 {
		pool.Stop()
		return nil, models.NewRenderError(
			models.ErrCodeBrowserCrash, "",
			"failed to launch browser",
			fmt.Errorf("no worker could be started"),
		)
	}
	slog.Info("browser pool created",
		"minBrowsers", poolCfg.MinBrowsers,
		"maxBrowsers", pool.MaxSize(),
		"maxQueue", poolCfg.MaxQueue,
	)

	return &Scraper{
		pool:          pool,
		browserCfg:    browserCfg,
		renderTimeout: renderTimeout,
		blocked:       blockedSet(browserCfg.BlockedResourceTypes),
	}, nil
}

// launchWorker starts one Chromium process and connects to it.
func launchWorker(cfg config.BrowserConfig) (*worker, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth & container flags ────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-setuid-sandbox"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-accelerated-2d-canvas"))
	l.Set(flags.Flag("disable-gpu"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-zygote"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	slog.Debug("browser launched", "pid", l.PID(), "controlURL", controlURL)
	return &worker{launcher: l, browser: browser}, nil
}

// destroyWorker closes the CDP connection, kills the process and removes
// its temporary profile directory.
func destroyWorker(w *worker) {
	if err := w.browser.Close(); err != nil {
		slog.Debug("browser close failed, killing process", "pid", w.launcher.PID(), "error", err)
	}
	w.launcher.Kill()
	w.launcher.Cleanup()
	slog.Debug("browser destroyed", "pid", w.launcher.PID())
}

// Stats returns a snapshot of the pool's current state.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxBrowsers:  s.pool.MaxSize(),
		LiveBrowsers: s.pool.Size(),
		InUse:        s.pool.ActiveCount(),
		Waiting:      s.pool.WaitingCount(),
	}
}

// Close drains the pool and kills every idle browser process.
// Call this on graceful shutdown to prevent zombie Chrome processes.
func (s *Scraper) Close() {
	slog.Info("scraper shutting down: draining browser pool")
	s.pool.Stop()
	slog.Info("scraper shutdown complete")
}
