package clips

import (
	"regexp"
	"strings"

	"github.com/use-agent/courtclips/models"
)

var (
	gameLinkRe = regexp.MustCompile(`href="/game/([^"]+)"`)
	gameIDRe   = regexp.MustCompile(`(\d{10})$`)

	// VideoURLPattern matches absolute HTTPS links to .mp4 files.
	VideoURLPattern = regexp.MustCompile(`https:[^"']+\.mp4`)
)

// ParseGames returns the games linked from a listing page, deduplicated by
// slug in first-seen order. The result is never nil.
func ParseGames(html string) []models.Game {
	games := []models.Game{}
	seen := make(map[string]struct{})
	for _, m := range gameLinkRe.FindAllStringSubmatch(html, -1) {
		slug := m[1]
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		games = append(games, models.Game{GameID: GameID(slug), Slug: slug})
	}
	return games
}

// GameID returns the trailing 10-digit id of slug, or slug itself when it
// does not end in one.
func GameID(slug string) string {
	if m := gameIDRe.FindStringSubmatch(slug); m != nil {
		return m[1]
	}
	return slug
}

// ParseVideos returns the distinct video URLs in html in first-seen order.
// The result is never nil.
func ParseVideos(html string) []string {
	videos := []string{}
	seen := make(map[string]struct{})
	for _, u := range VideoURLPattern.FindAllString(html, -1) {
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		videos = append(videos, u)
	}
	return videos
}

// ListingURL fills the {date} placeholder of tmpl verbatim.
func ListingURL(tmpl, date string) string {
	return strings.ReplaceAll(tmpl, "{date}", date)
}

// GameURL fills the {slug} placeholder of tmpl verbatim.
func GameURL(tmpl, slug string) string {
	return strings.ReplaceAll(tmpl, "{slug}", slug)
}
