// Package fs implements the cache store as one JSON file per key, namespaced
// by provider so a single provider's entries can be cleared wholesale.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// Store is a filesystem-backed cache. Safe for concurrent use.
type Store struct {
	dir    string
	mu     sync.Mutex
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(provider, key string) string {
	return filepath.Join(s.dir, provider, key+".json")
}

// Get reads the entry for key. Corrupt or unreadable entries are removed and
// reported as a miss so a fresh upstream call overwrites them.
func (s *Store) Get(_ context.Context, provider, key string) (models.CachedResponse, bool, error) {
	data, err := os.ReadFile(s.path(provider, key))
	if err != nil {
		s.misses.Add(1)
		return models.CachedResponse{}, false, nil
	}

	var resp models.CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		zap.L().Warn("discarding corrupt cache entry",
			zap.String("provider", provider),
			zap.String("key", key),
			zap.Error(err),
		)
		s.mu.Lock()
		_ = os.Remove(s.path(provider, key))
		s.mu.Unlock()
		s.misses.Add(1)
		return models.CachedResponse{}, false, nil
	}

	s.hits.Add(1)
	return resp, true, nil
}

// Put writes the entry unless one already exists. First writer wins.
func (s *Store) Put(_ context.Context, resp models.CachedResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dir, resp.Provider)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create provider dir: %w", err)
	}

	f, err := os.OpenFile(s.path(resp.Provider, resp.Key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("create cache entry: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(resp); err != nil {
		// Leave no partial entry behind.
		_ = os.Remove(f.Name())
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Clear removes all entries, or one provider's namespace when scoped.
func (s *Store) Clear(_ context.Context, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scope != "" {
		if err := os.RemoveAll(filepath.Join(s.dir, scope)); err != nil {
			return fmt.Errorf("clear provider cache: %w", err)
		}
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.dir, e.Name())); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	return nil
}

// Stats counts entries on disk plus in-process hit/miss counters.
func (s *Store) Stats(_ context.Context) (models.CacheStats, error) {
	var count int64
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, ".json") {
			count++
		}
		return nil
	})
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("walk cache dir: %w", err)
	}
	return models.CacheStats{Entries: count, Hits: s.hits.Load(), Misses: s.misses.Load()}, nil
}

// Close is a no-op for the filesystem store.
func (s *Store) Close() error { return nil }
