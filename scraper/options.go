package scraper

import (
	"time"

	"github.com/go-rod/rod/lib/proto"
)

// Readiness is the lifecycle point after which a page counts as loaded.
type Readiness int

const (
	// ReadyDOMContentLoaded returns once the initial document is parsed,
	// without waiting for subresources or late scripts.
	ReadyDOMContentLoaded Readiness = iota

	// ReadyLoad waits for the window load event.
	ReadyLoad
)

func (r Readiness) String() string {
	switch r {
	case ReadyLoad:
		return "load"
	default:
		return "domcontentloaded"
	}
}

func (r Readiness) lifecycleEvent() proto.PageLifecycleEventName {
	if r == ReadyLoad {
		return proto.PageLifecycleEventNameLoad
	}
	return proto.PageLifecycleEventNameDOMContentLoaded
}

// Settle is an extra wait after readiness for client-side hydration.
//
// With a nil Probe it is a fixed delay of MaxWait. Otherwise the rendered
// HTML is checked every Interval until Probe returns true or MaxWait
// elapses; either way the render proceeds with the DOM it has.
type Settle struct {
	MaxWait  time.Duration
	Interval time.Duration
	Probe    Probe
}

// RenderOptions controls one Render call.
type RenderOptions struct {
	Readiness Readiness
	Settle    *Settle
}

// RenderResult is the output of a successful render.
type RenderResult struct {
	// HTML is the serialized DOM after readiness and settle.
	HTML string

	// Title is the document title parsed from HTML.
	Title string

	// FinalURL is the page URL after redirects.
	FinalURL string

	// Elapsed covers pool wait, navigation and settle.
	Elapsed time.Duration
}
