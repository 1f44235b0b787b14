// Package config loads and validates the ingestion run configuration.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/halcyon-security/breachradar/internal/adapter/provider"
)

// Source kinds understood by the ingester.
const (
	KindRSS       = "rss"
	KindHTMLTable = "htmltable"
)

var ErrNoValidSources = errors.New("at least one valid source is required")

// Config is the top-level ingestion configuration.
type Config struct {
	Sources  []SourceConfig `yaml:"sources"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Notify   NotifyConfig   `yaml:"notify"`
}

// SourceConfig describes a single feed to poll.
type SourceConfig struct {
	Name     string         `yaml:"name" validate:"required"`
	URL      string         `yaml:"url" validate:"required,url"`
	SourceID int            `yaml:"source_id" validate:"required,gt=0"`
	Kind     string         `yaml:"kind" validate:"required,oneof=rss htmltable"`
	Columns  *ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig maps table column positions for htmltable sources.
// Omitted columns are treated as absent.
type ColumnsConfig struct {
	Organization *int `yaml:"organization"`
	Date         *int `yaml:"date"`
	Count        *int `yaml:"count"`
	Link         *int `yaml:"link"`
}

// TableColumns converts the optional column mapping into provider
// column indexes, with -1 marking absent columns.
func (c *ColumnsConfig) TableColumns() provider.TableColumns {
	cols := provider.TableColumns{Organization: -1, Date: -1, Count: -1, Link: -1}
	if c == nil {
		return cols
	}
	if c.Organization != nil {
		cols.Organization = *c.Organization
	}
	if c.Date != nil {
		cols.Date = *c.Date
	}
	if c.Count != nil {
		cols.Count = *c.Count
	}
	if c.Link != nil {
		cols.Link = *c.Link
	}
	return cols
}

// PipelineConfig tunes the concurrent ingestion run.
type PipelineConfig struct {
	Workers             int     `yaml:"workers"`
	RecencyDays         int     `yaml:"recency_days"`
	MaxEntriesPerSource int     `yaml:"max_entries_per_source"`
	MinConfidence       float64 `yaml:"min_confidence"`
	SourceTimeoutSec    int     `yaml:"source_timeout_sec"`
	RunTimeoutSec       int     `yaml:"run_timeout_sec"`
}

// NotifyConfig controls high-confidence breach notifications.
type NotifyConfig struct {
	WebhookURL    string  `yaml:"webhook_url"`
	MinConfidence float64 `yaml:"min_confidence"`
}

// SourceTimeout returns the per-source deadline.
func (p PipelineConfig) SourceTimeout() time.Duration {
	return time.Duration(p.SourceTimeoutSec) * time.Second
}

// RunTimeout returns the whole-run deadline.
func (p PipelineConfig) RunTimeout() time.Duration {
	return time.Duration(p.RunTimeoutSec) * time.Second
}

// Load reads, validates, and defaults a configuration file. Source
// descriptors that fail validation are dropped with a diagnostic so a
// single bad entry does not block the rest of the run.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	validate := validator.New()
	valid := cfg.Sources[:0]
	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if err := validate.Struct(src); err != nil {
			log.Printf("Skipping invalid source[%d] %q: %v", i, src.Name, err)
			continue
		}
		// Source names are unique identifiers in reports and metrics.
		if seen[src.Name] {
			log.Printf("Skipping source[%d]: duplicate name %q", i, src.Name)
			continue
		}
		seen[src.Name] = true
		valid = append(valid, src)
	}
	cfg.Sources = valid

	if len(cfg.Sources) == 0 {
		return nil, ErrNoValidSources
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.RecencyDays <= 0 {
		c.Pipeline.RecencyDays = 30
	}
	if c.Pipeline.MaxEntriesPerSource <= 0 {
		c.Pipeline.MaxEntriesPerSource = 50
	}
	if c.Pipeline.MinConfidence <= 0 {
		c.Pipeline.MinConfidence = 0.3
	}
	if c.Pipeline.SourceTimeoutSec <= 0 {
		c.Pipeline.SourceTimeoutSec = 45
	}
	if c.Pipeline.RunTimeoutSec <= 0 {
		c.Pipeline.RunTimeoutSec = 300
	}
	if c.Notify.MinConfidence <= 0 {
		c.Notify.MinConfidence = 0.8
	}
}

// Environment overrides let deployments tune a shared config file
// without editing it.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NOTIFY_WEBHOOK_URL"); v != "" {
		c.Notify.WebhookURL = v
	}
	if v := os.Getenv("BREACHRADAR_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.Workers = n
		}
	}
	if v := os.Getenv("BREACHRADAR_RUN_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Pipeline.RunTimeoutSec = n
		}
	}
}

// String returns a short summary for startup logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Sources: %d, Workers: %d, RunTimeout: %ds}",
		len(c.Sources), c.Pipeline.Workers, c.Pipeline.RunTimeoutSec)
}
