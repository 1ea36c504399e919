package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/courtclips/engine"
	"github.com/use-agent/courtclips/models"
	"github.com/ysmood/gson"
)

const acceptLanguage = "en-US,en;q=0.9"

// Render fetches the fully rendered markup of targetURL.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Timeout guard          – hard deadline on pool wait + render
//  2. Acquire worker         – borrow a browser process from the pool
//  3. DEFER: release         – healthy / failed / broken back to the pool
//  4. Incognito context      – fresh cookies, cache and storage
//  5. Page + DEFER: close    – page and context torn down on every path
//  6. Identity               – user agent, headers, stealth (before navigation!)
//  7. Hijack mount           – block configured resource types (before navigation!)
//  8. Readiness waiter       – MUST be registered before Navigate
//  9. Navigate + wait
//  10. Settle                – fixed delay or probe polling
//  11. Extract               – page.HTML()
//
// Teardown uses the page and context references without the request
// context, so cleanup succeeds even after the deadline has passed.
func (s *Scraper) Render(ctx context.Context, targetURL string, opts RenderOptions) (*RenderResult, error) {
	start := time.Now()

	// ── 1. Timeout guard ──────────────────────────────────────────────
	if s.renderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.renderTimeout)
		defer cancel()
	}

	// ── 2. Acquire worker ─────────────────────────────────────────────
	h, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, categorizeError(err, targetURL, "failed to acquire browser")
	}

	// ── 3. Release on every exit path ─────────────────────────────────
	outcome := engine.Failed
	defer func() { s.pool.Release(h, outcome) }()

	// ── 4. Isolated browser context ───────────────────────────────────
	incognito, err := h.Value.browser.Incognito()
	if err != nil {
		outcome = engine.Broken
		return nil, models.NewRenderError(models.ErrCodeBrowserCrash, targetURL, "failed to create browser context", err)
	}
	defer func() {
		if closeErr := incognito.Close(); closeErr != nil {
			slog.Warn("cleanup: failed to dispose browser context", "error", closeErr)
		}
	}()

	// ── 5. Page ───────────────────────────────────────────────────────
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		outcome = engine.Broken
		return nil, models.NewRenderError(models.ErrCodeBrowserCrash, targetURL, "failed to open page", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("cleanup: failed to close page", "error", closeErr)
		}
	}()

	// ── 6. Client identity ────────────────────────────────────────────
	if err := s.applyIdentity(page); err != nil {
		return nil, models.NewRenderError(models.ErrCodeBrowserCrash, targetURL, "failed to set client identity", err)
	}

	// ── 7. Resource blocking ──────────────────────────────────────────
	if router := setupHijack(page, s.blocked); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 8. Bind context, register readiness waiter ────────────────────
	p := page.Context(ctx)
	waitReady := p.WaitNavigation(opts.Readiness.lifecycleEvent())

	// ── 9. Navigate ───────────────────────────────────────────────────
	if err := p.Navigate(targetURL); err != nil {
		return nil, categorizeError(err, targetURL, "navigation to target URL failed")
	}
	waitReady()
	if err := ctx.Err(); err != nil {
		return nil, categorizeError(err, targetURL, "page did not become ready")
	}

	// ── 10. Settle ────────────────────────────────────────────────────
	if opts.Settle != nil {
		if err := settle(ctx, p.HTML, *opts.Settle); err != nil {
			return nil, categorizeError(err, targetURL, "failed while waiting for page to settle")
		}
	}

	// ── 11. Extract rendered HTML ─────────────────────────────────────
	rawHTML, err := p.HTML()
	if err != nil {
		return nil, categorizeError(err, targetURL, "failed to extract page HTML")
	}

	finalURL := targetURL
	if info, infoErr := p.Info(); infoErr == nil && info.URL != "" {
		finalURL = info.URL
	}

	outcome = engine.Healthy
	result := &RenderResult{
		HTML:     rawHTML,
		Title:    extractTitle(rawHTML),
		FinalURL: finalURL,
		Elapsed:  time.Since(start),
	}
	slog.Debug("page rendered",
		"url", targetURL,
		"readiness", opts.Readiness.String(),
		"bytes", len(rawHTML),
		"title", result.Title,
		"elapsed_ms", result.Elapsed.Milliseconds(),
	)
	return result, nil
}

// applyIdentity makes the page look like a regular desktop browser.
func (s *Scraper) applyIdentity(page *rod.Page) error {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      s.browserCfg.UserAgent,
		AcceptLanguage: acceptLanguage,
	}); err != nil {
		return err
	}

	if s.browserCfg.Referer != "" {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{"Referer": s.browserCfg.Referer}),
		}).Call(page); err != nil {
			return err
		}
	}

	if s.browserCfg.Stealth {
		if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
