package domain

import (
	"math"
	"strings"
)

// Tier weights. Co-occurrence across tiers is a much stronger breach
// signal than many hits inside a single tier, hence the multi-signal boost.
const (
	primaryWeight    = 3.0
	secondaryWeight  = 1.5
	impactWeight     = 0.5
	multiSignalBoost = 1.5
	scoreCeiling     = 10.0

	// DefaultThreshold is the decision boundary on confidence. The
	// comparison is strictly greater-than, so a lone primary keyword
	// (3.0 raw -> 0.3) does not classify as breach-related on its own.
	DefaultThreshold = 0.3
)

// KeywordTable holds the three weighted keyword tiers. Tables are
// immutable configuration injected at construction, never mutated.
type KeywordTable struct {
	Primary   []string // explicit breach/incident terms
	Secondary []string // adjacent security terms
	Impact    []string // generic impact vocabulary
}

// DefaultKeywordTable returns the stock table used in production runs.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		Primary: []string{
			"data breach",
			"security breach",
			"data leak",
			"leaked database",
			"ransomware",
			"hacked",
			"cyberattack",
			"cyber attack",
			"exfiltrated",
			"stolen data",
			"security incident",
			"unauthorized access",
			"compromised",
		},
		Secondary: []string{
			"phishing",
			"malware",
			"vulnerability",
			"credential theft",
			"threat actor",
			"dark web",
			"extortion",
			"zero-day",
			"social engineering",
		},
		Impact: []string{
			"affected",
			"exposed",
			"records",
			"customers",
			"patients",
			"individuals",
			"notified",
			"personal information",
		},
	}
}

// Classifier scores free text against a fixed keyword table. It is a pure
// function of its inputs: identical text always yields an identical result.
type Classifier struct {
	table     KeywordTable
	threshold float64
}

// NewClassifier builds a classifier around the given table and decision
// threshold. A non-positive threshold falls back to DefaultThreshold.
func NewClassifier(table KeywordTable, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Classifier{table: table, threshold: threshold}
}

// Threshold returns the configured decision threshold.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// Classify scores the concatenated title, summary and body. Each matched
// keyword contributes its tier weight once regardless of how many times it
// occurs in the text.
func (c *Classifier) Classify(title, summary, body string) Classification {
	text := strings.ToLower(title + " " + summary + " " + body)

	var score float64
	var keywords []string
	tiersHit := 0

	tiers := []struct {
		words  []string
		weight float64
	}{
		{c.table.Primary, primaryWeight},
		{c.table.Secondary, secondaryWeight},
		{c.table.Impact, impactWeight},
	}

	for _, tier := range tiers {
		hit := false
		for _, word := range tier.words {
			if strings.Contains(text, word) {
				score += tier.weight
				keywords = append(keywords, word)
				hit = true
			}
		}
		if hit {
			tiersHit++
		}
	}

	if tiersHit >= 2 {
		score *= multiSignalBoost
	}

	confidence := math.Min(score/scoreCeiling, 1.0)

	return Classification{
		BreachRelated: confidence > c.threshold,
		Confidence:    confidence,
		Keywords:      keywords,
	}
}
