package provider

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/halcyon-security/breachradar/internal/core/domain"
)

// RSSProvider pulls entries from one RSS or Atom feed. The fetch itself
// goes through the resilient Client so transport fallback applies before
// the bytes ever reach the feed parser.
type RSSProvider struct {
	client     *Client
	name       string
	url        string
	sourceID   int
	maxEntries int
}

// NewRSSProvider builds a provider for one feed source. maxEntries bounds
// the backlog handed to the orchestrator; zero means no provider-side cap.
func NewRSSProvider(client *Client, name, url string, sourceID, maxEntries int) *RSSProvider {
	if client == nil {
		client = NewClient(name, DefaultClientConfig())
	}
	return &RSSProvider{
		client:     client,
		name:       name,
		url:        url,
		sourceID:   sourceID,
		maxEntries: maxEntries,
	}
}

func (p *RSSProvider) Name() string {
	return p.name
}

func (p *RSSProvider) SourceID() int {
	return p.sourceID
}

// Fetch retrieves the feed and maps its items to raw entries, preserving
// feed order.
func (p *RSSProvider) Fetch(ctx context.Context) ([]domain.RawEntry, error) {
	body, err := p.client.Get(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", p.name, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", p.name, err)
	}

	var entries []domain.RawEntry
	for _, item := range feed.Items {
		if item == nil || item.Link == "" {
			continue
		}
		if p.maxEntries > 0 && len(entries) >= p.maxEntries {
			break
		}

		entry := domain.RawEntry{
			Title:     item.Title,
			Summary:   item.Description,
			Content:   item.Content,
			Link:      item.Link,
			Published: item.PublishedParsed,
			Tags:      item.Categories,
		}
		if entry.Published == nil {
			entry.Published = item.UpdatedParsed
		}
		// Raw strings kept as fallback candidates for the normalizer,
		// structured fields first.
		if item.Published != "" {
			entry.DateCandidates = append(entry.DateCandidates, item.Published)
		}
		if item.Updated != "" {
			entry.DateCandidates = append(entry.DateCandidates, item.Updated)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
