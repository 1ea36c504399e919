package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Probe reports whether rendered HTML looks hydrated.
type Probe func(html string) bool

// PatternProbe fires once re matches anywhere in the markup.
func PatternProbe(re *regexp.Regexp) Probe {
	return func(html string) bool {
		return re.MatchString(html)
	}
}

// SelectorProbe fires once at least one element matches the CSS selector.
// The selector is compiled here so that a bad value fails at startup.
func SelectorProbe(selector string) (Probe, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("scraper: invalid selector %q: %w", selector, err)
	}
	return func(html string) bool {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return false
		}
		return doc.FindMatcher(sel).Length() > 0
	}, nil
}

// AnyProbe fires when any of probes fires. Nil entries are skipped.
func AnyProbe(probes ...Probe) Probe {
	return func(html string) bool {
		for _, p := range probes {
			if p != nil && p(html) {
				return true
			}
		}
		return false
	}
}
