package ingest

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// metricsOnce ensures metrics are registered only once
	metricsOnce sync.Once

	// ingestSourcesTotal tracks source fetch outcomes by status
	ingestSourcesTotal *prometheus.CounterVec

	// ingestItemsTotal tracks per-entry pipeline outcomes
	ingestItemsTotal *prometheus.CounterVec

	// ingestConfidence tracks the distribution of classifier confidence
	ingestConfidence prometheus.Histogram

	// ingestRunDuration tracks wall-clock duration of full ingestion runs
	ingestRunDuration prometheus.Histogram
)

// InitMetrics registers all Prometheus metrics for the ingestion pipeline.
// This should be called once at application startup.
func InitMetrics() {
	metricsOnce.Do(func() {
		ingestSourcesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_sources_total",
				Help: "Total number of source fetch attempts by source and status",
			},
			[]string{"source", "status"},
		)

		ingestItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_items_total",
				Help: "Total number of entries processed by source and outcome",
			},
			[]string{"source", "outcome"},
		)

		ingestConfidence = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_classification_confidence",
				Help:    "Distribution of breach-classification confidence scores (0.0-1.0)",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		)

		ingestRunDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ingest_run_duration_seconds",
				Help:    "Wall-clock duration of full ingestion runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		)
	})
}

// recordSource records a source fetch outcome
// status: "ok", "failed", "timed_out"
func recordSource(source, status string) {
	if ingestSourcesTotal != nil {
		ingestSourcesTotal.WithLabelValues(source, status).Inc()
	}
}

// recordItem records a per-entry outcome
// outcome: "inserted", "skipped", "failed"
func recordItem(source, outcome string) {
	if ingestItemsTotal != nil {
		ingestItemsTotal.WithLabelValues(source, outcome).Inc()
	}
}

// recordConfidence records one classification confidence observation
func recordConfidence(confidence float64) {
	if ingestConfidence != nil {
		ingestConfidence.Observe(confidence)
	}
}

// recordRunDuration records the elapsed time of a completed run
func recordRunDuration(elapsed time.Duration) {
	if ingestRunDuration != nil {
		ingestRunDuration.Observe(elapsed.Seconds())
	}
}
