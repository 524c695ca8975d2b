// Package sqlite implements the cache store on a single SQLite database,
// useful when many small cache files are undesirable.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// Store is a SQLite-backed response cache. Safe for concurrent use.
type Store struct {
	db     *sql.DB
	hits   atomic.Int64
	misses atomic.Int64
}

const createTable = `
CREATE TABLE IF NOT EXISTS responses (
	key          TEXT NOT NULL,
	provider     TEXT NOT NULL,
	model        TEXT NOT NULL,
	actual_model TEXT NOT NULL DEFAULT '',
	response     TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	PRIMARY KEY (provider, key)
);
`

// New opens (or creates) the cache database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &Store{db: db}, nil
}

// Get retrieves a cached response. Unreadable rows are reported as a miss.
func (s *Store) Get(ctx context.Context, provider, key string) (models.CachedResponse, bool, error) {
	var resp models.CachedResponse
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT key, provider, model, actual_model, response, created_at
		 FROM responses WHERE provider = ? AND key = ?`,
		provider, key,
	).Scan(&resp.Key, &resp.Provider, &resp.Model, &resp.ActualModel, &resp.Text, &createdAt)
	if err != nil {
		s.misses.Add(1)
		return models.CachedResponse{}, false, nil
	}
	resp.CreatedAt = createdAt
	s.hits.Add(1)
	return resp, true, nil
}

// Put stores a response. First writer wins; a second put for the same key is
// a no-op.
func (s *Store) Put(ctx context.Context, resp models.CachedResponse) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO responses (key, provider, model, actual_model, response, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		resp.Key, resp.Provider, resp.Model, resp.ActualModel, resp.Text, resp.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Clear removes all entries, or one provider's entries when scoped.
func (s *Store) Clear(ctx context.Context, scope string) error {
	var err error
	if scope == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM responses`)
	} else {
		_, err = s.db.ExecContext(ctx, `DELETE FROM responses WHERE provider = ?`, scope)
	}
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Stats reports entry and hit/miss counts.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&count); err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{Entries: count, Hits: s.hits.Load(), Misses: s.misses.Load()}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
