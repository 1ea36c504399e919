package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserAgent is the client identity presented to the remote site.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	Browser BrowserConfig
	Pool    PoolConfig
	Scraper ScraperConfig
	Log     LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds how long in-flight requests may drain.
	ShutdownTimeout time.Duration // default: 10s
}

// BrowserConfig controls how worker browsers are launched and how every
// page presents itself to the remote site.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is passed to every launched browser.
	Proxy string

	// UserAgent overrides navigator.userAgent and the User-Agent header.
	UserAgent string

	// Referer is sent with every navigation. Empty disables it.
	Referer string // default: "https://www.nba.com/"

	// Stealth injects the go-rod/stealth evasion script into every page.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to abort.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string
}

// PoolConfig bounds the number of browser processes alive at any time.
type PoolConfig struct {
	// MinBrowsers is the number of workers kept warm.
	MinBrowsers int // default: 1

	// MaxBrowsers is the hard cap on live worker processes (and concurrent renders).
	MaxBrowsers int // default: 4

	// MaxQueue is how many renders may wait for a worker before new ones are rejected.
	MaxQueue int // default: 32

	// MaxUses retires a worker after this many renders.
	MaxUses int // default: 50

	// MaxAge retires a worker after this lifetime.
	MaxAge time.Duration // default: 30m

	// IdleTTL retires workers idle for longer than this (above MinBrowsers).
	IdleTTL time.Duration // default: 5m
}

// ScraperConfig controls the listing/detail page pipeline.
type ScraperConfig struct {
	// ListingURL is the date-indexed listing page; "{date}" is replaced verbatim.
	ListingURL string

	// GameURL is the per-game play-by-play page; "{slug}" is replaced verbatim.
	GameURL string

	// RenderTimeout is the deadline for one render, including the pool wait.
	RenderTimeout time.Duration // default: 30s

	// SettleMode is "poll" or "fixed". "poll" proceeds as soon as the first
	// video URL (or selector match) appears, so a page that keeps adding
	// clips may yield fewer URLs than the full "fixed" delay would.
	SettleMode string // default: "poll"

	// SettleDelay is the fixed delay, or the poll ceiling.
	SettleDelay time.Duration // default: 2s

	// SettleInterval is the poll period.
	SettleInterval time.Duration // default: 250ms

	// SettleSelector, if set, also counts as hydrated once an element matches it.
	SettleSelector string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory, if present, is applied first;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Host:            envOr("COURTCLIPS_HOST", "0.0.0.0"),
			Port:            envIntOr("PORT", 3000),
			Mode:            envOr("COURTCLIPS_MODE", "release"),
			ShutdownTimeout: envDurationOr("COURTCLIPS_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("COURTCLIPS_HEADLESS", true),
			NoSandbox:  envBoolOr("COURTCLIPS_NO_SANDBOX", true),
			BrowserBin: os.Getenv("COURTCLIPS_BROWSER_BIN"),
			Proxy:      os.Getenv("COURTCLIPS_PROXY"),
			UserAgent:  envOr("COURTCLIPS_USER_AGENT", DefaultUserAgent),
			Referer:    envOr("COURTCLIPS_REFERER", "https://www.nba.com/"),
			Stealth:    envBoolOr("COURTCLIPS_STEALTH", true),
			BlockedResourceTypes: envSliceOr("COURTCLIPS_BLOCKED_RESOURCES", []string{
				"Image", "Font", "Media",
			}),
		},
		Pool: PoolConfig{
			MinBrowsers: envIntOr("COURTCLIPS_MIN_BROWSERS", 1),
			MaxBrowsers: envIntOr("COURTCLIPS_MAX_BROWSERS", 4),
			MaxQueue:    envIntOr("COURTCLIPS_MAX_QUEUE", 32),
			MaxUses:     envIntOr("COURTCLIPS_BROWSER_MAX_USES", 50),
			MaxAge:      envDurationOr("COURTCLIPS_BROWSER_MAX_AGE", 30*time.Minute),
			IdleTTL:     envDurationOr("COURTCLIPS_BROWSER_IDLE_TTL", 5*time.Minute),
		},
		Scraper: ScraperConfig{
			ListingURL:     envOr("COURTCLIPS_LISTING_URL", "https://www.nba.com/games?date={date}"),
			GameURL:        envOr("COURTCLIPS_GAME_URL", "https://www.nba.com/game/{slug}/play-by-play"),
			RenderTimeout:  envDurationOr("COURTCLIPS_RENDER_TIMEOUT", 30*time.Second),
			SettleMode:     strings.ToLower(envOr("COURTCLIPS_SETTLE_MODE", "poll")),
			SettleDelay:    envDurationOr("COURTCLIPS_SETTLE_DELAY", 2*time.Second),
			SettleInterval: envDurationOr("COURTCLIPS_SETTLE_INTERVAL", 250*time.Millisecond),
			SettleSelector: os.Getenv("COURTCLIPS_SETTLE_SELECTOR"),
		},
		Log: LogConfig{
			Level:  envOr("COURTCLIPS_LOG_LEVEL", "info"),
			Format: envOr("COURTCLIPS_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
