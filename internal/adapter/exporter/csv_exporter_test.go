package exporter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/halcyon-security/breachradar/internal/core/domain"
)

type stubRepo struct {
	items []domain.Item
	err   error
}

func (s *stubRepo) Exists(ctx context.Context, link string) (bool, error) { return false, nil }

func (s *stubRepo) Insert(ctx context.Context, item domain.Item) (bool, error) { return true, nil }

func (s *stubRepo) FindSince(ctx context.Context, since time.Time, limit int) ([]domain.Item, error) {
	return s.items, s.err
}

func (s *stubRepo) FindByOrganization(ctx context.Context, org string, limit int) ([]domain.Item, error) {
	return nil, nil
}

func (s *stubRepo) CountSince(ctx context.Context, since time.Time) (int64, error) {
	return int64(len(s.items)), nil
}

func TestExportCSV(t *testing.T) {
	affected := int64(14255)
	repo := &stubRepo{items: []domain.Item{
		{
			Link:         "https://example.com/a",
			Organization: "Contoso Medical Group",
			Confidence:   0.9,
			Affected:     &affected,
			DataTypes:    []string{"medical records", "ssn"},
			IncidentDate: "January 15, 2024",
			PublishedAt:  time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
			SourceID:     1,
			Title:        "Contoso Medical Group data breach",
		},
		{
			Link:        "https://example.com/b",
			Confidence:  0.5,
			PublishedAt: time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC),
			SourceID:    2,
			Title:       "Title with, a comma",
		},
	}}

	out, err := NewCSVExporter(repo).Export(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 records", len(lines))
	}
	if !strings.HasPrefix(lines[0], "link,organization,confidence") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "medical records;ssn") {
		t.Errorf("record = %q, want joined data types", lines[1])
	}
	if !strings.Contains(lines[1], "14255") {
		t.Errorf("record = %q, want affected count", lines[1])
	}
	if !strings.Contains(lines[2], `"Title with, a comma"`) {
		t.Errorf("record = %q, want comma-containing title quoted", lines[2])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	out, err := NewCSVExporter(&stubRepo{}).Export(context.Background(), time.Time{}, 0)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 1 {
		t.Errorf("got %d lines, want header only", len(lines))
	}
}
