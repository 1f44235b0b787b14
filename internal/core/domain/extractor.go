package domain

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Pattern chains are ordered: the first family that matches wins, and the
// families are listed from highest to lowest precision. Keeping them as
// data (pattern + post-processor) means precision tuning is a table edit,
// not a code restructure.

const capitalizedPhrase = `[A-Z][\w&.'-]*(?:\s+(?:of|for|and|the|[A-Z][\w&.'-]*)){0,5}`

var orgPatterns = []*regexp.Regexp{
	// Capitalized phrase followed by a legal-entity suffix.
	regexp.MustCompile(`(` + capitalizedPhrase + `(?:\s+(?:Inc|Corp|Corporation|LLC|Ltd|Co|Company|Hospital|University|College|Bank|Insurance|Health|Healthcare|Medical Center|Group|Holdings|Systems|Services|Solutions|Technologies))\.?)`),
	// Capitalized phrase followed by a breach-disclosure verb.
	regexp.MustCompile(`(` + capitalizedPhrase + `)\s+(?:has\s+|recently\s+)?(?:suffered|reported|disclosed|confirmed|announced|experienced)\s+(?:a\s+)?(?:data\s+|security\s+)?breach`),
	// "breach at/against/on/of <Name>".
	regexp.MustCompile(`[Bb]reach\s+(?:at|against|on|of)\s+(` + capitalizedPhrase + `)`),
	// Capitalized phrase followed by "data/security/cyber breach".
	regexp.MustCompile(`(` + capitalizedPhrase + `)\s+(?:data|security|cyber)\s+breach`),
}

// genericOrgNames are placeholders the org patterns routinely trip over.
// Checked after leading articles are stripped.
var genericOrgNames = map[string]bool{
	"company":      true,
	"organization": true,
	"firm":         true,
	"agency":       true,
	"hospital":     true,
	"breach":       true,
	"incident":     true,
	"attackers":    true,
	"hackers":      true,
}

const impactNouns = `(?:records|customers|users|patients|employees|individuals|people|accounts|members|clients|consumers)`

const countQualifier = `(?:(?:over|more than|approximately|about|nearly|up to|at least)\s+)?`

// countPatterns pair a numeric pattern with its magnitude multiplier.
// Magnitude-suffixed forms come first so "1.2 million customers" never
// falls through to the plain-number pattern.
var countPatterns = []struct {
	re         *regexp.Regexp
	multiplier float64
}{
	{regexp.MustCompile(`(?i)` + countQualifier + `([\d,]+(?:\.\d+)?)\s*(?:billion|b)\b[\s\w]{0,20}?` + impactNouns), 1e9},
	{regexp.MustCompile(`(?i)` + countQualifier + `([\d,]+(?:\.\d+)?)\s*(?:million|m)\b[\s\w]{0,20}?` + impactNouns), 1e6},
	{regexp.MustCompile(`(?i)` + countQualifier + `([\d,]+(?:\.\d+)?)\s*(?:thousand|k)\b[\s\w]{0,20}?` + impactNouns), 1e3},
	{regexp.MustCompile(`(?i)` + countQualifier + `([\d,]+)\s+` + impactNouns), 1},
}

const monthNames = `(?:January|February|March|April|May|June|July|August|September|October|November|December)`

// datePatterns anchor on temporal prepositions. The matched substring is
// returned as-is: no canonical date format exists for this field upstream,
// and guessing one would silently corrupt ambiguous regional forms.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bbetween\s+(` + monthNames + `\s+\d{1,2},?\s+\d{4}\s+and\s+` + monthNames + `\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)\b(?:on|dated)\s+(` + monthNames + `\s+\d{1,2},?\s+\d{4})`),
	regexp.MustCompile(`(?i)\boccurred\s+(?:on|in|during)\s+(` + monthNames + `(?:\s+\d{1,2},?)?\s+\d{4})`),
	regexp.MustCompile(`(?i)\b(?:in|during)\s+(` + monthNames + `\s+\d{4})`),
	regexp.MustCompile(`(?i)\bon\s+(\d{1,2}/\d{1,2}/\d{2,4})`),
}

// DefaultDataTypeVocabulary lists the sensitive-data category phrases the
// extractor recognizes. Membership is a case-insensitive substring test.
func DefaultDataTypeVocabulary() []string {
	return []string{
		"social security numbers",
		"ssn",
		"credit card",
		"payment card",
		"debit card",
		"bank account",
		"financial information",
		"medical records",
		"health information",
		"health insurance",
		"email addresses",
		"phone numbers",
		"dates of birth",
		"driver's license",
		"passport",
		"passwords",
		"credentials",
		"usernames",
		"personal information",
		"biometric",
		"pii",
	}
}

// Extractor pulls structured breach facts out of free text. Like the
// classifier, it holds only immutable configuration and is safe for
// concurrent use.
type Extractor struct {
	dataTypes []string
}

// NewExtractor builds an extractor over the given data-type vocabulary.
// An empty vocabulary falls back to the default one.
func NewExtractor(dataTypes []string) *Extractor {
	if len(dataTypes) == 0 {
		dataTypes = DefaultDataTypeVocabulary()
	}
	return &Extractor{dataTypes: dataTypes}
}

// Facts holds everything the extractor found for one entry.
type Facts struct {
	Organization string
	Affected     *int64
	DataTypes    []string
	IncidentDate string
	LeakSummary  string
}

// Extract runs every extraction over the same text.
func (e *Extractor) Extract(text string) Facts {
	facts := Facts{
		DataTypes:    e.DataTypes(text),
		IncidentDate: e.IncidentDate(text),
	}

	if org, ok := e.Organization(text); ok {
		facts.Organization = org
	}
	if n, ok := e.AffectedCount(text); ok {
		facts.Affected = &n
	}
	facts.LeakSummary = e.leakSummary(text, facts.DataTypes)

	return facts
}

// Organization tries the pattern families in precision order and returns
// the first match that survives the placeholder filter.
func (e *Extractor) Organization(text string) (string, bool) {
	for _, re := range orgPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		if name, ok := cleanOrgName(m[1]); ok {
			return name, true
		}
	}

	return "", false
}

// cleanOrgName trims punctuation and leading articles, then rejects
// generic placeholders and overly short matches.
func cleanOrgName(raw string) (string, bool) {
	name := strings.TrimRight(strings.TrimSpace(raw), ".,")

	for _, article := range []string{"The ", "A ", "An "} {
		if strings.HasPrefix(name, article) {
			name = name[len(article):]
			break
		}
	}

	if len(name) <= 3 || genericOrgNames[strings.ToLower(name)] {
		return "", false
	}

	return name, true
}

// AffectedCount returns the first count matched in pattern-priority order.
// Multiple numeric mentions in the same document are not reconciled: the
// first match under the defined priority is authoritative.
func (e *Extractor) AffectedCount(text string) (int64, bool) {
	for _, p := range countPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		raw := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 {
			continue
		}

		return int64(value * p.multiplier), true
	}

	return 0, false
}

// DataTypes returns the subset of the vocabulary present in the text,
// deduplicated, order following the vocabulary.
func (e *Extractor) DataTypes(text string) []string {
	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	var matched []string

	for _, dt := range e.dataTypes {
		if strings.Contains(lower, dt) && !seen[dt] {
			seen[dt] = true
			matched = append(matched, dt)
		}
	}

	return matched
}

// IncidentDate returns the first matched date phrase as a raw substring.
func (e *Extractor) IncidentDate(text string) string {
	for _, re := range datePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	return ""
}

// KeywordContext returns an excerpt window around the first occurrence of
// each keyword, for human review. At most limit keywords are looked up.
func (e *Extractor) KeywordContext(text string, keywords []string, radius, limit int) map[string]string {
	if radius <= 0 {
		radius = 50
	}
	if limit <= 0 {
		limit = 5
	}

	lower := strings.ToLower(text)
	context := make(map[string]string)

	for _, kw := range keywords {
		if len(context) >= limit {
			break
		}

		idx := strings.Index(lower, strings.ToLower(kw))
		if idx < 0 {
			continue
		}

		start := idx - radius
		if start < 0 {
			start = 0
		}
		end := idx + len(kw) + radius
		if end > len(text) {
			end = len(text)
		}
		// Window edges are byte offsets; widen them to rune boundaries so
		// the excerpt is always valid UTF-8.
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
		for end < len(text) && !utf8.RuneStart(text[end]) {
			end++
		}

		context[kw] = strings.TrimSpace(text[start:end])
	}

	return context
}

// leakSummary derives a short "what was leaked" line from the matched data
// types and the text around the first one. Empty when nothing matched.
func (e *Extractor) leakSummary(text string, dataTypes []string) string {
	if len(dataTypes) == 0 {
		return ""
	}

	summary := "Compromised data includes " + strings.Join(dataTypes, ", ")
	if ctx := e.KeywordContext(text, dataTypes[:1], 60, 1); len(ctx) == 1 {
		summary += " (\"" + ctx[dataTypes[0]] + "\")"
	}

	return summary
}
