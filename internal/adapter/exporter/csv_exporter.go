package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/halcyon-security/breachradar/internal/core/ports"
)

// CSVExporter renders recently ingested incidents as CSV for spreadsheet
// review and CI report artifacts.
type CSVExporter struct {
	repo ports.ItemRepository
}

func NewCSVExporter(repo ports.ItemRepository) *CSVExporter {
	return &CSVExporter{repo: repo}
}

var csvHeader = []string{
	"link", "organization", "confidence", "affected_count",
	"data_types", "incident_date", "published_at", "source_id", "title",
}

// Export generates a CSV incident feed. A zero since defaults to the
// last 24 hours.
func (e *CSVExporter) Export(ctx context.Context, since time.Time, limit int) (string, error) {
	if since.IsZero() {
		since = time.Now().Add(-24 * time.Hour)
	}
	if limit <= 0 {
		limit = 10000
	}

	items, err := e.repo.FindSince(ctx, since, limit)
	if err != nil {
		return "", fmt.Errorf("failed to fetch items: %w", err)
	}

	var output strings.Builder
	w := csv.NewWriter(&output)

	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, item := range items {
		affected := ""
		if item.Affected != nil {
			affected = strconv.FormatInt(*item.Affected, 10)
		}

		record := []string{
			item.Link,
			item.Organization,
			strconv.FormatFloat(item.Confidence, 'f', 2, 64),
			affected,
			strings.Join(item.DataTypes, ";"),
			item.IncidentDate,
			item.PublishedAt.Format(time.RFC3339),
			strconv.Itoa(item.SourceID),
			item.Title,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}

	return output.String(), nil
}
