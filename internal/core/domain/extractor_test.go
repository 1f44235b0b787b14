package domain

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractOrganization(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name    string
		text    string
		want    string
		wantOK  bool
	}{
		{
			name:   "legal entity suffix",
			text:   "Acme Corp announced today that attackers accessed its systems.",
			want:   "Acme Corp",
			wantOK: true,
		},
		{
			name:   "hospital suffix with multi-word name",
			text:   "Officials at St. Mary Hospital began notifying victims.",
			want:   "St. Mary Hospital",
			wantOK: true,
		},
		{
			name:   "disclosure verb family",
			text:   "Northwind Traders suffered a data breach last week.",
			want:   "Northwind Traders",
			wantOK: true,
		},
		{
			name:   "breach-at family",
			text:   "Regulators are investigating the breach at Contoso Pharmaceuticals.",
			want:   "Contoso Pharmaceuticals",
			wantOK: true,
		},
		{
			name:   "trailing breach-noun family",
			text:   "The Fabrikam Retail data breach exposed customer records.",
			want:   "Fabrikam Retail",
			wantOK: true,
		},
		{
			name:   "generic placeholder is filtered",
			text:   "The Company disclosed a breach affecting customers.",
			wantOK: false,
		},
		{
			name:   "no organization present",
			text:   "thousands of records were exposed online",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Organization(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("Organization(%q) ok = %v, want %v (got %q)", tt.text, ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("Organization(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractAffectedCount(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name   string
		text   string
		want   int64
		wantOK bool
	}{
		{"plain count with separators", "over 1,023,000 customers were notified", 1023000, true},
		{"patients", "the incident impacted 14,255 patients", 14255, true},
		{"million suffix", "approximately 2.5 million users were affected", 2500000, true},
		{"million word order", "more than 3 million records were exposed", 3000000, true},
		{"thousand suffix", "about 80 thousand members received letters", 80000, true},
		{"billion suffix", "1 billion accounts may be involved", 1000000000, true},
		{"no count", "N/A", 0, false},
		{"number without impact noun", "the stock fell 12 percent", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.AffectedCount(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("AffectedCount(%q) ok = %v, want %v (got %d)", tt.text, ok, tt.wantOK, got)
			}
			if ok && got != tt.want {
				t.Errorf("AffectedCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDataTypes(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "multiple categories",
			text: "Exposed data included Social Security numbers, credit card details and passwords.",
			want: []string{"social security numbers", "credit card", "passwords"},
		},
		{
			name: "single category, case-insensitive",
			text: "MEDICAL RECORDS were accessible for months",
			want: []string{"medical records"},
		},
		{
			name: "nothing sensitive",
			text: "the marketing site was defaced",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.DataTypes(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DataTypes(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractIncidentDate(t *testing.T) {
	e := NewExtractor(nil)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"on month day year", "The intrusion was discovered on January 15, 2024 by staff.", "January 15, 2024"},
		{"in month year", "Attackers were active in March 2023.", "March 2023"},
		{"occurred in", "The incident occurred in September 2022 and lasted weeks.", "September 2022"},
		{"between range", "Access took place between June 1, 2023 and June 14, 2023 according to forensics.", "June 1, 2023 and June 14, 2023"},
		{"numeric date", "Systems were locked on 3/14/2024 overnight.", "3/14/2024"},
		{"no date phrase", "the company has not said when the breach happened", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.IncidentDate(tt.text); got != tt.want {
				t.Errorf("IncidentDate(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestKeywordContext(t *testing.T) {
	e := NewExtractor(nil)

	text := strings.Repeat("x", 100) + " a serious data breach hit the hospital " + strings.Repeat("y", 100)

	ctx := e.KeywordContext(text, []string{"data breach", "missing"}, 10, 5)

	if len(ctx) != 1 {
		t.Fatalf("expected 1 context entry, got %d", len(ctx))
	}
	excerpt, ok := ctx["data breach"]
	if !ok {
		t.Fatalf("expected context for 'data breach', got %v", ctx)
	}
	if !strings.Contains(excerpt, "data breach") {
		t.Errorf("excerpt %q does not contain the keyword", excerpt)
	}
	if len(excerpt) > len("data breach")+20 {
		t.Errorf("excerpt %q exceeds the requested window", excerpt)
	}
}

func TestKeywordContextRuneBoundaries(t *testing.T) {
	e := NewExtractor(nil)

	// Multibyte prefix placed so a plain byte-offset window would start
	// inside a rune.
	text := strings.Repeat("é", 10) + " breach details follow"

	ctx := e.KeywordContext(text, []string{"breach"}, 4, 5)

	excerpt, ok := ctx["breach"]
	if !ok {
		t.Fatalf("expected context for 'breach', got %v", ctx)
	}
	if !utf8.ValidString(excerpt) {
		t.Errorf("excerpt %q is not valid UTF-8", excerpt)
	}
	if !strings.Contains(excerpt, "breach") {
		t.Errorf("excerpt %q does not contain the keyword", excerpt)
	}
}

func TestKeywordContextLimit(t *testing.T) {
	e := NewExtractor(nil)

	text := "alpha beta gamma delta epsilon zeta eta"
	keywords := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}

	ctx := e.KeywordContext(text, keywords, 50, 5)
	if len(ctx) != 5 {
		t.Errorf("expected at most 5 context entries, got %d", len(ctx))
	}
}

func TestExtractFacts(t *testing.T) {
	e := NewExtractor(nil)

	text := "Contoso Health Systems disclosed a breach on February 2, 2024. " +
		"Approximately 1.2 million patients had Social Security numbers and medical records exposed."

	facts := e.Extract(text)

	if facts.Organization != "Contoso Health Systems" {
		t.Errorf("Organization = %q, want %q", facts.Organization, "Contoso Health Systems")
	}
	if facts.Affected == nil || *facts.Affected != 1200000 {
		t.Errorf("Affected = %v, want 1200000", facts.Affected)
	}
	if !reflect.DeepEqual(facts.DataTypes, []string{"social security numbers", "medical records"}) {
		t.Errorf("DataTypes = %v", facts.DataTypes)
	}
	if facts.IncidentDate != "February 2, 2024" {
		t.Errorf("IncidentDate = %q, want %q", facts.IncidentDate, "February 2, 2024")
	}
	if facts.LeakSummary == "" {
		t.Error("expected a derived leak summary")
	}
}
