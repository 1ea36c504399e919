package scraper

import (
	"context"
	"log/slog"
	"time"
)

const defaultSettleInterval = 250 * time.Millisecond

// settle blocks according to s. snapshot returns the current rendered HTML.
// It only fails when ctx ends or a snapshot cannot be taken; running out of
// MaxWait without the probe firing is not an error.
func settle(ctx context.Context, snapshot func() (string, error), s Settle) error {
	if s.MaxWait <= 0 {
		return nil
	}

	deadline := time.NewTimer(s.MaxWait)
	defer deadline.Stop()

	if s.Probe == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		}
	}

	interval := s.Interval
	if interval <= 0 {
		interval = defaultSettleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	polls := 0
	for {
		html, err := snapshot()
		if err != nil {
			return err
		}
		polls++
		if s.Probe(html) {
			slog.Debug("settle: probe satisfied", "polls", polls)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			slog.Debug("settle: probe did not fire, proceeding with current DOM",
				"polls", polls, "maxWait", s.MaxWait)
			return nil
		case <-ticker.C:
		}
	}
}
