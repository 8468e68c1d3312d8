package handlers

import (
	"regexp"
	"strings"

	"github.com/cesargomez89/catalogd/internal/domain"
)

// parenSuffix matches a trailing parenthesized clause, e.g. the
// "(Deluxe Edition)" in "Album Title (Deluxe Edition)".
var parenSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// stripParenSuffix removes one trailing parenthesized clause from s.
func stripParenSuffix(s string) string {
	return strings.TrimSpace(parenSuffix.ReplaceAllString(s, ""))
}

// titlesMatch implements import_album's audio-id/video-id matching
// heuristic: case-insensitive equality, containment either direction
// after stripping parenthesized suffixes, or equality after stripping
// the trailing parenthesized clause from each side.
func titlesMatch(albumTrackTitle, playlistTitle string) bool {
	a := strings.ToLower(strings.TrimSpace(albumTrackTitle))
	b := strings.ToLower(strings.TrimSpace(playlistTitle))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	aStripped := strings.ToLower(stripParenSuffix(albumTrackTitle))
	bStripped := strings.ToLower(stripParenSuffix(playlistTitle))
	if aStripped == bStripped {
		return true
	}
	if strings.Contains(aStripped, bStripped) || strings.Contains(bStripped, aStripped) {
		return true
	}
	return false
}

// thumbnailSetsEqual reports whether two thumbnail lists carry the same
// normalized set of URLs, regardless of order (sync_artist step 2: "the
// normalized sets differ" triggers a banner re-download).
func thumbnailSetsEqual(a, b domain.Thumbnails) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, t := range a {
		seen[t.URL]++
	}
	for _, t := range b {
		seen[t.URL]--
	}
	for _, count := range seen {
		if count != 0 {
			return false
		}
	}
	return true
}
