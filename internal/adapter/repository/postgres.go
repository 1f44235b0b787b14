package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/halcyon-security/breachradar/internal/core/domain"
)

// PostgresRepository is the pgx-backed item store. The UNIQUE constraint
// on link is the de-duplication boundary: Insert reports a conflict as
// "already exists", never as an error.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const itemColumns = `link, source_id, title, summary, content, tags, published_at,
		confidence, keywords, organization, affected_count, data_types,
		incident_date, leak_summary, date_ingested`

func (r *PostgresRepository) Exists(ctx context.Context, link string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM items WHERE link = $1)`, link).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check link existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, item domain.Item) (bool, error) {
	query := `
		INSERT INTO items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (link) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		item.Link,
		item.SourceID,
		item.Title,
		item.Summary,
		item.Content,
		item.Tags,
		item.PublishedAt,
		item.Confidence,
		item.Keywords,
		item.Organization,
		item.Affected,
		item.DataTypes,
		item.IncidentDate,
		item.LeakSummary,
		item.DateIngested,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) FindSince(ctx context.Context, since time.Time, limit int) ([]domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE date_ingested >= $1
		ORDER BY date_ingested DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items since %v: %w", since, err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *PostgresRepository) FindByOrganization(ctx context.Context, org string, limit int) ([]domain.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM items
		WHERE organization ILIKE '%' || $1 || '%'
		ORDER BY date_ingested DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, org, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query items by organization: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *PostgresRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE date_ingested >= $1`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return count, nil
}

func scanItems(rows pgx.Rows) ([]domain.Item, error) {
	var items []domain.Item

	for rows.Next() {
		var item domain.Item
		err := rows.Scan(
			&item.Link,
			&item.SourceID,
			&item.Title,
			&item.Summary,
			&item.Content,
			&item.Tags,
			&item.PublishedAt,
			&item.Confidence,
			&item.Keywords,
			&item.Organization,
			&item.Affected,
			&item.DataTypes,
			&item.IncidentDate,
			&item.LeakSummary,
			&item.DateIngested,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return items, nil
}
