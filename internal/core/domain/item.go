package domain

import "time"

// RawEntry is one unit of content pulled from a source. It only lives
// inside a single fetch cycle; the orchestrator turns it into an Item.
type RawEntry struct {
	Title          string
	Summary        string     // may still contain markup
	Content        string     // optional full text, may contain markup
	Link           string     // candidate dedup key
	Published      *time.Time // structured time when the source parser produced one
	DateCandidates []string   // raw date strings, in source priority order
	Tags           []string
}

// Item is a normalized, classified entry as persisted by the store.
// Link is the idempotency key: an Item is inserted at most once per Link.
type Item struct {
	Title        string
	Summary      string
	Content      string
	Link         string
	PublishedAt  time.Time
	Tags         []string
	SourceID     int
	Confidence   float64
	Keywords     []string // matched classifier keywords, insertion order
	Organization string   // empty when no pattern matched
	Affected     *int64   // nil when no count was found
	DataTypes    []string
	IncidentDate string // raw matched substring, deliberately un-normalized
	LeakSummary  string
	DateIngested time.Time
}

// Classification is the outcome of scoring one entry's text.
type Classification struct {
	BreachRelated bool
	Confidence    float64
	Keywords      []string
}
