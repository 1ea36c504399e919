package scraper

import (
	"context"
	"errors"

	"github.com/use-agent/courtclips/engine"
	"github.com/use-agent/courtclips/models"
)

// categorizeError wraps raw errors into typed RenderErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, targetURL, msg string) *models.RenderError {
	var re *models.RenderError
	if errors.As(err, &re) {
		return re
	}
	switch {
	case errors.Is(err, engine.ErrPoolSaturated):
		return models.NewRenderError(models.ErrCodeOverloaded, targetURL, "no browser available", err)
	case errors.Is(err, engine.ErrWorkerStart):
		return models.NewRenderError(models.ErrCodeBrowserCrash, targetURL, "failed to launch browser", err)
	case errors.Is(err, engine.ErrPoolClosed):
		return models.NewRenderError(models.ErrCodeBrowserCrash, targetURL, "browser pool is shut down", err)
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewRenderError(models.ErrCodeTimeout, targetURL, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewRenderError(models.ErrCodeTimeout, targetURL, "request canceled", err)
	default:
		return models.NewRenderError(models.ErrCodeNavigation, targetURL, msg, err)
	}
}
