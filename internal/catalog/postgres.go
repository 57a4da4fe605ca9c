package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource loads catalogue items from a PostgreSQL table instead of
// catalogue.json, for deployments where the offline pipeline writes items
// into a database. Embedding matrices are still read from .npy files; only
// the item metadata moves to the database.
//
// Expected schema:
//
//	CREATE TABLE catalogue_items (
//	    ordinal  INTEGER PRIMARY KEY,
//	    item_id  TEXT NOT NULL UNIQUE,
//	    title    TEXT NOT NULL,
//	    text     TEXT NOT NULL,
//	    metadata JSONB
//	);
//
// Catalogue order is the ordinal column; it must match the row order of the
// matrix files.
type PostgresSource struct {
	pool     *pgxpool.Pool
	matrices *FileSource
}

// NewPostgresSource connects to PostgreSQL and verifies the connection.
// dataDir is where the per-model matrix files live.
func NewPostgresSource(ctx context.Context, databaseURL, dataDir string) (*PostgresSource, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresSource{
		pool:     pool,
		matrices: NewFileSource(dataDir),
	}, nil
}

// Close releases the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// LoadItems reads every catalogue item ordered by ordinal.
func (s *PostgresSource) LoadItems(ctx context.Context) ([]Item, error) {
	query := `
		SELECT item_id, title, text, metadata
		FROM catalogue_items
		ORDER BY ordinal
	`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying catalogue_items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var metadataJSON []byte
		if err := rows.Scan(&item.ItemID, &item.Title, &item.Text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning catalogue item: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata for item %q: %w", item.ItemID, err)
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating catalogue items: %w", err)
	}
	return items, nil
}

// LoadMatrix delegates to the file-backed matrices.
func (s *PostgresSource) LoadMatrix(ctx context.Context, modelKey string) ([][]float32, error) {
	return s.matrices.LoadMatrix(ctx, modelKey)
}

// Ensure PostgresSource implements Source.
var _ Source = (*PostgresSource)(nil)
