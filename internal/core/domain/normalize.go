package domain

import (
	"html"
	"regexp"
	"strings"
	"time"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// dateLayouts are tried in order by ParseDate. Feed dates in the wild are
// wildly inconsistent, so the list is broad on purpose.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"2 January 2006",
}

// CleanText strips markup, unescapes HTML entities, collapses whitespace
// and truncates to max runes, appending "..." when cut. Empty input yields
// empty output.
func CleanText(markup string, max int) string {
	if markup == "" {
		return ""
	}

	text := tagPattern.ReplaceAllString(markup, " ")
	text = html.UnescapeString(text)
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if max > 0 {
		runes := []rune(text)
		if len(runes) > max {
			text = strings.TrimSpace(string(runes[:max])) + "..."
		}
	}

	return text
}

// ParseDate tries each candidate string against the known layouts, in
// candidate order. The first candidate that parses wins. Returns nil when
// every candidate fails; callers supply their own fallback instant.
func ParseDate(candidates []string) *time.Time {
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}

		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, candidate); err == nil {
				return &t
			}
		}
	}

	return nil
}

// PublicationTime resolves an entry's publication instant: the structured
// parsed time first, then the raw date candidates, then the fallback
// (normally the ingestion time).
func PublicationTime(e RawEntry, fallback time.Time) time.Time {
	if e.Published != nil {
		return *e.Published
	}

	if t := ParseDate(e.DateCandidates); t != nil {
		return *t
	}

	return fallback
}

// DedupeTags returns the tags with duplicates and blanks removed,
// preserving first-seen order.
func DedupeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, tag)
	}

	return out
}
