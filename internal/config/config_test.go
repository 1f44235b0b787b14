package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: hhs-breach-portal
    url: https://example.com/breaches
    source_id: 1
    kind: htmltable
    columns:
      organization: 0
      date: 2
      count: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline.Workers != 4 {
		t.Errorf("Workers = %d, want default 4", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.RecencyDays != 30 {
		t.Errorf("RecencyDays = %d, want default 30", cfg.Pipeline.RecencyDays)
	}
	if cfg.Pipeline.MinConfidence != 0.3 {
		t.Errorf("MinConfidence = %v, want default 0.3", cfg.Pipeline.MinConfidence)
	}
	if cfg.Notify.MinConfidence != 0.8 {
		t.Errorf("Notify.MinConfidence = %v, want default 0.8", cfg.Notify.MinConfidence)
	}

	cols := cfg.Sources[0].Columns.TableColumns()
	if cols.Organization != 0 || cols.Date != 2 || cols.Count != 3 {
		t.Errorf("TableColumns = %+v, want mapped indexes", cols)
	}
	if cols.Link != -1 {
		t.Errorf("Link = %d, want -1 for omitted column", cols.Link)
	}
}

func TestLoadSkipsInvalidSources(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: good-feed
    url: https://example.com/rss
    source_id: 1
    kind: rss
  - name: missing-url
    source_id: 2
    kind: rss
  - name: bad-kind
    url: https://example.com/other
    source_id: 3
    kind: sitemap
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sources) != 1 {
		t.Fatalf("got %d sources, want 1 after dropping invalid descriptors", len(cfg.Sources))
	}
	if cfg.Sources[0].Name != "good-feed" {
		t.Errorf("kept source = %q, want good-feed", cfg.Sources[0].Name)
	}
}

func TestLoadSkipsDuplicateNames(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: feed
    url: https://example.com/rss
    source_id: 1
    kind: rss
  - name: feed
    url: https://example.com/other-rss
    source_id: 2
    kind: rss
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Sources) != 1 {
		t.Fatalf("got %d sources, want 1 after dropping the duplicate name", len(cfg.Sources))
	}
	if cfg.Sources[0].SourceID != 1 {
		t.Errorf("kept source_id = %d, want the first descriptor", cfg.Sources[0].SourceID)
	}
}

func TestLoadNoValidSources(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: broken
    kind: rss
`)

	if _, err := Load(path); !errors.Is(err, ErrNoValidSources) {
		t.Errorf("Load() error = %v, want ErrNoValidSources", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NOTIFY_WEBHOOK_URL", "https://hooks.example.com/T000/B000")
	t.Setenv("BREACHRADAR_WORKERS", "8")

	path := writeConfig(t, `
sources:
  - name: feed
    url: https://example.com/rss
    source_id: 1
    kind: rss
pipeline:
  workers: 2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Notify.WebhookURL != "https://hooks.example.com/T000/B000" {
		t.Errorf("WebhookURL = %q, want env override", cfg.Notify.WebhookURL)
	}
	if cfg.Pipeline.Workers != 8 {
		t.Errorf("Workers = %d, want env override 8", cfg.Pipeline.Workers)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "sources: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for malformed YAML")
	}
}
