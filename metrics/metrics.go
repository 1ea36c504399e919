package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/courtclips/models"
)

// Render kinds.
const (
	KindListing = "listing"
	KindGame    = "game"
)

// Metrics holds Prometheus collectors for the scraper.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	rendersTotal       *prometheus.CounterVec
	renderDuration     *prometheus.HistogramVec
	gamesDiscovered    prometheus.Counter
	videosExtracted    prometheus.Counter
	extractionFailures prometheus.Counter
}

// New creates and registers the collectors. stats, if non-nil, backs the
// browser pool gauges and is read on every scrape.
func New(stats func() models.PoolStats) *Metrics {
	registry := prometheus.NewRegistry()

	rendersTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "courtclips_renders_total",
		Help: "Total number of page renders by kind and outcome",
	}, []string{"kind", "outcome"})
	renderDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courtclips_render_duration_seconds",
		Help:    "Wall time of page renders, including pool wait and settle",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34},
	}, []string{"kind"})
	gamesDiscovered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtclips_games_discovered_total",
		Help: "Total number of games found on listing pages",
	})
	videosExtracted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtclips_videos_extracted_total",
		Help: "Total number of video URLs extracted from game pages",
	})
	extractionFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "courtclips_extraction_failures_total",
		Help: "Total number of games whose extraction failed and degraded to no videos",
	})

	registry.MustRegister(
		rendersTotal,
		renderDuration,
		gamesDiscovered,
		videosExtracted,
		extractionFailures,
	)

	if stats != nil {
		registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "courtclips_pool_live_browsers",
				Help: "Number of live browser processes",
			}, func() float64 { return float64(stats().LiveBrowsers) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "courtclips_pool_in_use",
				Help: "Number of browsers currently rendering",
			}, func() float64 { return float64(stats().InUse) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "courtclips_pool_waiting",
				Help: "Number of renders waiting for a browser",
			}, func() float64 { return float64(stats().Waiting) }),
		)
	}

	return &Metrics{
		registry:           registry,
		rendersTotal:       rendersTotal,
		renderDuration:     renderDuration,
		gamesDiscovered:    gamesDiscovered,
		videosExtracted:    videosExtracted,
		extractionFailures: extractionFailures,
	}
}

// ObserveRender records one render of the given kind.
func (m *Metrics) ObserveRender(kind string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.rendersTotal.WithLabelValues(kind, outcome).Inc()
	m.renderDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// AddGamesDiscovered adds n to the discovered games counter.
func (m *Metrics) AddGamesDiscovered(n int) {
	if m == nil {
		return
	}
	m.gamesDiscovered.Add(float64(n))
}

// AddVideosExtracted adds n to the extracted videos counter.
func (m *Metrics) AddVideosExtracted(n int) {
	if m == nil {
		return
	}
	m.videosExtracted.Add(float64(n))
}

// IncExtractionFailures increments the extraction failure counter.
func (m *Metrics) IncExtractionFailures() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
