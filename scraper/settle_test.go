package scraper

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func staticSnapshot(html string) func() (string, error) {
	return func() (string, error) { return html, nil }
}

func TestSettle_ZeroMaxWaitReturnsImmediately(t *testing.T) {
	start := time.Now()
	if err := settle(context.Background(), staticSnapshot(""), Settle{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("zero MaxWait should not block")
	}
}

func TestSettle_FixedDelayWaitsFullDuration(t *testing.T) {
	var calls atomic.Int32
	snapshot := func() (string, error) {
		calls.Add(1)
		return "", nil
	}

	start := time.Now()
	err := settle(context.Background(), snapshot, Settle{MaxWait: 80 * time.Millisecond})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("fixed settle returned after %v, want >= 80ms", elapsed)
	}
	if calls.Load() != 0 {
		t.Errorf("fixed settle should not snapshot the page, got %d calls", calls.Load())
	}
}

func TestSettle_ProbeFiresEarly(t *testing.T) {
	var calls atomic.Int32
	snapshot := func() (string, error) {
		if calls.Add(1) >= 3 {
			return `<a href="https://cdn.example.com/a.mp4">`, nil
		}
		return "<div>loading</div>", nil
	}

	s := Settle{
		MaxWait:  2 * time.Second,
		Interval: 10 * time.Millisecond,
		Probe:    PatternProbe(regexp.MustCompile(`https:[^"']+\.mp4`)),
	}

	start := time.Now()
	if err := settle(context.Background(), snapshot, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("probe should have ended settle early, took %v", elapsed)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 snapshots, got %d", calls.Load())
	}
}

func TestSettle_ProbeAlreadySatisfiedSkipsWait(t *testing.T) {
	s := Settle{
		MaxWait: time.Second,
		Probe:   func(string) bool { return true },
	}
	start := time.Now()
	if err := settle(context.Background(), staticSnapshot("ready"), s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("satisfied probe should return on the first poll")
	}
}

func TestSettle_DeadlineWithoutProbeIsNotAnError(t *testing.T) {
	s := Settle{
		MaxWait:  60 * time.Millisecond,
		Interval: 10 * time.Millisecond,
		Probe:    func(string) bool { return false },
	}
	start := time.Now()
	if err := settle(context.Background(), staticSnapshot("never"), s); err != nil {
		t.Fatalf("deadline should not be an error, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("settle returned before MaxWait: %v", elapsed)
	}
}

func TestSettle_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := settle(ctx, staticSnapshot(""), Settle{MaxWait: 5 * time.Second})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got: %v", err)
	}

	ctx2, cancel2 := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel2()
	err = settle(ctx2, staticSnapshot(""), Settle{
		MaxWait:  5 * time.Second,
		Interval: 5 * time.Millisecond,
		Probe:    func(string) bool { return false },
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded while polling, got: %v", err)
	}
}

func TestSettle_SnapshotErrorPropagates(t *testing.T) {
	boom := errors.New("target closed")
	snapshot := func() (string, error) { return "", boom }

	err := settle(context.Background(), snapshot, Settle{
		MaxWait: time.Second,
		Probe:   func(html string) bool { return strings.Contains(html, "x") },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected snapshot error, got: %v", err)
	}
}
