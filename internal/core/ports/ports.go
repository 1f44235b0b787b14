package ports

import (
	"context"
	"time"

	"github.com/halcyon-security/breachradar/internal/core/domain"
)

// FeedProvider retrieves one configured source's raw entries. A provider
// never panics across this boundary: transport or parse failures come back
// as an error and zero entries.
type FeedProvider interface {
	Fetch(ctx context.Context) ([]domain.RawEntry, error)
	Name() string
	SourceID() int
}

// ItemRepository is the item store. Exists and Insert together form the
// de-duplication boundary: Insert reports false (not an error) when the
// link is already present.
type ItemRepository interface {
	Exists(ctx context.Context, link string) (bool, error)
	Insert(ctx context.Context, item domain.Item) (bool, error)
	FindSince(ctx context.Context, since time.Time, limit int) ([]domain.Item, error)
	FindByOrganization(ctx context.Context, org string, limit int) ([]domain.Item, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

// Notifier delivers alerts for newly persisted high-confidence incidents.
type Notifier interface {
	NotifyBreach(incident BreachNotification) error
}

// BreachNotification carries everything a downstream alert needs.
type BreachNotification struct {
	Title        string
	Link         string
	Source       string
	Organization string
	Confidence   float64
	Affected     *int64
	DataTypes    []string
	IncidentDate string
}
