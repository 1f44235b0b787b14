package ingest

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/halcyon-security/breachradar/internal/core/domain"
	"github.com/halcyon-security/breachradar/internal/core/ports"
)

// Cleaning bounds for normalized text fields.
const (
	maxTitleLen   = 300
	maxSummaryLen = 1000
	maxContentLen = 5000
)

// SourceStatus classifies how one source's fetch-and-process task ended.
type SourceStatus string

const (
	StatusOK       SourceStatus = "ok"
	StatusFailed   SourceStatus = "failed"
	StatusTimedOut SourceStatus = "timed_out"
)

// Options are the run tunables. Zero values fall back to defaults.
type Options struct {
	Workers             int
	SourceTimeout       time.Duration
	RunTimeout          time.Duration
	MaxEntriesPerSource int
	RecencyWindowDays   int
	MinConfidence       float64 // persistence threshold, may be stricter than the classifier's own
	NotifyConfidence    float64 // webhook threshold, normally stricter again
}

// DefaultOptions returns the production defaults. The worker pool is small
// on purpose: sources are rate-limited by courtesy, not throughput.
func DefaultOptions() Options {
	return Options{
		Workers:             4,
		SourceTimeout:       45 * time.Second,
		RunTimeout:          5 * time.Minute,
		MaxEntriesPerSource: 50,
		RecencyWindowDays:   30,
		MinConfidence:       domain.DefaultThreshold,
		NotifyConfidence:    0.8,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = def.SourceTimeout
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = def.RunTimeout
	}
	if o.MaxEntriesPerSource <= 0 {
		o.MaxEntriesPerSource = def.MaxEntriesPerSource
	}
	if o.RecencyWindowDays <= 0 {
		o.RecencyWindowDays = def.RecencyWindowDays
	}
	if o.MinConfidence <= 0 {
		o.MinConfidence = def.MinConfidence
	}
	if o.NotifyConfidence <= 0 {
		o.NotifyConfidence = def.NotifyConfidence
	}
	return o
}

// SourceReport is the per-source slice of the run summary.
type SourceReport struct {
	Source    string       `json:"source"`
	Status    SourceStatus `json:"status"`
	Processed int          `json:"processed"`
	Inserted  int          `json:"inserted"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Err       string       `json:"error,omitempty"`
}

// Summary is the finalized record of one ingestion run. Once Run returns
// it is never mutated again.
type Summary struct {
	RunID             string         `json:"run_id"`
	StartedAt         time.Time      `json:"started_at"`
	FinishedAt        time.Time      `json:"finished_at"`
	Elapsed           time.Duration  `json:"elapsed"`
	Partial           bool           `json:"partial"`
	Sources           []SourceReport `json:"sources"`
	SuccessfulSources int            `json:"successful_sources"`
	FailedSources     int            `json:"failed_sources"`
	TotalProcessed    int            `json:"total_processed"`
	TotalInserted     int            `json:"total_inserted"`
	TotalSkipped      int            `json:"total_skipped"`
}

type entryOutcome int

const (
	outcomeInserted entryOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// Orchestrator runs all configured providers under a bounded worker pool
// and two cooperative deadlines, and drives the per-item pipeline.
type Orchestrator struct {
	providers  []ports.FeedProvider
	store      ports.ItemRepository
	classifier *domain.Classifier
	extractor  *domain.Extractor
	notifier   ports.Notifier // optional
	opts       Options
}

// New builds an orchestrator. The notifier may be nil.
func New(providers []ports.FeedProvider, store ports.ItemRepository, classifier *domain.Classifier, extractor *domain.Extractor, notifier ports.Notifier, opts Options) *Orchestrator {
	return &Orchestrator{
		providers:  providers,
		store:      store,
		classifier: classifier,
		extractor:  extractor,
		notifier:   notifier,
		opts:       opts.withDefaults(),
	}
}

// Run executes one full ingestion cycle and returns its finalized summary.
// The run never blocks past its deadline: outstanding sources are
// abandoned (their in-flight fetches keep running in the background, but
// their results are discarded) and recorded as timed-out.
func (o *Orchestrator) Run(ctx context.Context) *Summary {
	summary := &Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}

	runCtx, cancel := context.WithTimeout(ctx, o.opts.RunTimeout)
	defer cancel()

	sem := semaphore.NewWeighted(int64(o.opts.Workers))

	// Results carry the provider index, not the name, so two sources that
	// happen to share a name still surface as two reports and the collect
	// loop terminates.
	type indexedReport struct {
		idx    int
		report SourceReport
	}
	results := make(chan indexedReport, len(o.providers))

	for i, p := range o.providers {
		go func(i int, p ports.FeedProvider) {
			if err := sem.Acquire(runCtx, 1); err != nil {
				results <- indexedReport{i, SourceReport{
					Source: p.Name(),
					Status: StatusTimedOut,
					Err:    "run deadline reached before fetch started",
				}}
				return
			}
			defer sem.Release(1)

			results <- indexedReport{i, o.processSource(runCtx, p)}
		}(i, p)
	}

	reports := make([]*SourceReport, len(o.providers))
	received := 0

collect:
	for received < len(o.providers) {
		select {
		case r := <-results:
			reports[r.idx] = &r.report
			received++
		case <-runCtx.Done():
			summary.Partial = true
			break collect
		}
	}

	// Sources still outstanding when the run deadline fired.
	for i, p := range o.providers {
		if reports[i] == nil {
			reports[i] = &SourceReport{
				Source: p.Name(),
				Status: StatusTimedOut,
				Err:    "abandoned at run deadline",
			}
			recordSource(p.Name(), string(StatusTimedOut))
		}
	}

	for _, r := range reports {
		summary.Sources = append(summary.Sources, *r)
		if r.Status == StatusOK {
			summary.SuccessfulSources++
		} else {
			summary.FailedSources++
		}
		summary.TotalProcessed += r.Processed
		summary.TotalInserted += r.Inserted
		summary.TotalSkipped += r.Skipped
	}
	sort.Slice(summary.Sources, func(i, j int) bool {
		return summary.Sources[i].Source < summary.Sources[j].Source
	})

	summary.FinishedAt = time.Now()
	summary.Elapsed = summary.FinishedAt.Sub(summary.StartedAt)
	recordRunDuration(summary.Elapsed)

	return summary
}

// processSource covers one source's fetch plus per-item processing under
// the per-source deadline. Nothing here aborts the run: every failure
// class ends up in the report.
func (o *Orchestrator) processSource(ctx context.Context, p ports.FeedProvider) SourceReport {
	report := SourceReport{Source: p.Name(), Status: StatusOK}

	srcCtx, cancel := context.WithTimeout(ctx, o.opts.SourceTimeout)
	defer cancel()

	entries, err := p.Fetch(srcCtx)
	if err != nil {
		report.Status = StatusFailed
		if errors.Is(err, context.DeadlineExceeded) || srcCtx.Err() != nil {
			report.Status = StatusTimedOut
		}
		report.Err = err.Error()
		log.Printf("❌ Source %s failed: %v", p.Name(), err)
		recordSource(p.Name(), string(report.Status))
		return report
	}

	ingestedAt := time.Now()
	cutoff := ingestedAt.AddDate(0, 0, -o.opts.RecencyWindowDays)

	for _, entry := range entries {
		if srcCtx.Err() != nil {
			report.Status = StatusTimedOut
			report.Err = "source deadline reached during processing"
			break
		}
		if report.Processed >= o.opts.MaxEntriesPerSource {
			break
		}
		report.Processed++

		switch o.processEntry(srcCtx, p, entry, ingestedAt, cutoff) {
		case outcomeInserted:
			report.Inserted++
			recordItem(p.Name(), "inserted")
		case outcomeSkipped:
			report.Skipped++
			recordItem(p.Name(), "skipped")
		case outcomeFailed:
			report.Failed++
			recordItem(p.Name(), "failed")
		}
	}

	recordSource(p.Name(), string(report.Status))
	return report
}

// processEntry is the per-item pipeline: dedup check, recency filter,
// classification, extraction, persistence. The dedup check runs before
// any classification work as a cheap short-circuit.
func (o *Orchestrator) processEntry(ctx context.Context, p ports.FeedProvider, entry domain.RawEntry, ingestedAt, cutoff time.Time) entryOutcome {
	link := strings.TrimSpace(entry.Link)
	if link == "" {
		return outcomeSkipped
	}

	exists, err := o.store.Exists(ctx, link)
	if err != nil {
		log.Printf("⚠️  Dedup check failed for %s: %v", link, err)
		return outcomeFailed
	}
	if exists {
		return outcomeSkipped
	}

	publishedAt := domain.PublicationTime(entry, ingestedAt)
	if publishedAt.Before(cutoff) {
		return outcomeSkipped
	}

	title := domain.CleanText(entry.Title, maxTitleLen)
	summary := domain.CleanText(entry.Summary, maxSummaryLen)
	content := domain.CleanText(entry.Content, maxContentLen)

	cls := o.classifier.Classify(title, summary, content)
	recordConfidence(cls.Confidence)

	if !cls.BreachRelated || cls.Confidence < o.opts.MinConfidence {
		return outcomeSkipped
	}

	facts := o.extractor.Extract(title + ". " + summary + " " + content)

	item := domain.Item{
		Title:        title,
		Summary:      summary,
		Content:      content,
		Link:         link,
		PublishedAt:  publishedAt,
		Tags:         domain.DedupeTags(entry.Tags),
		SourceID:     p.SourceID(),
		Confidence:   cls.Confidence,
		Keywords:     cls.Keywords,
		Organization: facts.Organization,
		Affected:     facts.Affected,
		DataTypes:    facts.DataTypes,
		IncidentDate: facts.IncidentDate,
		LeakSummary:  facts.LeakSummary,
		DateIngested: ingestedAt,
	}

	inserted, err := o.store.Insert(ctx, item)
	if err != nil {
		log.Printf("⚠️  Insert failed for %s: %v", link, err)
		return outcomeFailed
	}
	if !inserted {
		// Constraint conflict: another worker got there first. A skip,
		// not an error.
		return outcomeSkipped
	}

	o.maybeNotify(p.Name(), item)
	return outcomeInserted
}

// maybeNotify fires the webhook for high-confidence incidents.
// Notification failures are logged and swallowed: alerting is best-effort
// and never fails an insert.
func (o *Orchestrator) maybeNotify(source string, item domain.Item) {
	if o.notifier == nil || item.Confidence < o.opts.NotifyConfidence {
		return
	}

	err := o.notifier.NotifyBreach(ports.BreachNotification{
		Title:        item.Title,
		Link:         item.Link,
		Source:       source,
		Organization: item.Organization,
		Confidence:   item.Confidence,
		Affected:     item.Affected,
		DataTypes:    item.DataTypes,
		IncidentDate: item.IncidentDate,
	})
	if err != nil {
		log.Printf("⚠️  Notification failed for %s: %v", item.Link, err)
	}
}
