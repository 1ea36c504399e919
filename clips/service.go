// Package clips discovers the games played on a date and collects the
// video clip URLs from each game's play-by-play page.
package clips

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/courtclips/config"
	"github.com/use-agent/courtclips/metrics"
	"github.com/use-agent/courtclips/models"
	"github.com/use-agent/courtclips/scraper"
)

// Renderer renders a page and returns its final markup.
type Renderer interface {
	Render(ctx context.Context, url string, opts scraper.RenderOptions) (*scraper.RenderResult, error)
}

// Service runs discovery and extraction against a Renderer.
type Service struct {
	renderer   Renderer
	listingURL string
	gameURL    string
	settle     *scraper.Settle
	metrics    *metrics.Metrics
}

// NewService builds a Service. m may be nil.
func NewService(r Renderer, cfg config.ScraperConfig, m *metrics.Metrics) (*Service, error) {
	s, err := buildSettle(cfg)
	if err != nil {
		return nil, err
	}
	return &Service{
		renderer:   r,
		listingURL: cfg.ListingURL,
		gameURL:    cfg.GameURL,
		settle:     s,
		metrics:    m,
	}, nil
}

func buildSettle(cfg config.ScraperConfig) (*scraper.Settle, error) {
	s := &scraper.Settle{MaxWait: cfg.SettleDelay, Interval: cfg.SettleInterval}
	switch cfg.SettleMode {
	case "fixed":
		return s, nil
	case "poll", "":
		probe := scraper.PatternProbe(VideoURLPattern)
		if cfg.SettleSelector != "" {
			sel, err := scraper.SelectorProbe(cfg.SettleSelector)
			if err != nil {
				return nil, err
			}
			probe = scraper.AnyProbe(probe, sel)
		}
		s.Probe = probe
		return s, nil
	default:
		return nil, fmt.Errorf("clips: unknown settle mode %q", cfg.SettleMode)
	}
}

// DiscoverGames renders the listing page for date and returns its games.
// date is not validated; it is substituted into the listing URL as given.
func (s *Service) DiscoverGames(ctx context.Context, date string) ([]models.Game, error) {
	target := ListingURL(s.listingURL, date)

	start := time.Now()
	res, err := s.renderer.Render(ctx, target, scraper.RenderOptions{
		Readiness: scraper.ReadyDOMContentLoaded,
	})
	s.metrics.ObserveRender(metrics.KindListing, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	games := ParseGames(res.HTML)
	s.metrics.AddGamesDiscovered(len(games))
	slog.Info("games discovered", "date", date, "count", len(games), "title", res.Title)
	return games, nil
}

// ExtractVideos renders the play-by-play page of slug and returns the
// video URLs it references.
func (s *Service) ExtractVideos(ctx context.Context, slug string) ([]string, error) {
	target := GameURL(s.gameURL, slug)

	start := time.Now()
	res, err := s.renderer.Render(ctx, target, scraper.RenderOptions{
		Readiness: scraper.ReadyDOMContentLoaded,
		Settle:    s.settle,
	})
	s.metrics.ObserveRender(metrics.KindGame, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	videos := ParseVideos(res.HTML)
	s.metrics.AddVideosExtracted(len(videos))
	slog.Debug("videos extracted", "slug", slug, "count", len(videos))
	return videos, nil
}

// Scrape discovers the games for date and extracts each game's videos in
// discovery order. A discovery failure is returned as is. A failed game
// gets an empty video list and does not stop the batch.
func (s *Service) Scrape(ctx context.Context, date string) ([]models.GameResult, error) {
	games, err := s.DiscoverGames(ctx, date)
	if err != nil {
		return nil, err
	}

	results := make([]models.GameResult, 0, len(games))
	for _, g := range games {
		videos, err := s.ExtractVideos(ctx, g.Slug)
		if err != nil {
			slog.Warn("video extraction failed, continuing with no videos",
				"date", date,
				"slug", g.Slug,
				"error", err,
			)
			s.metrics.IncExtractionFailures()
			videos = []string{}
		}
		results = append(results, models.GameResult{Game: g, Videos: videos})
	}

	slog.Info("scrape complete", "date", date, "games", len(results))
	return results, nil
}
