package cache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// Memory is an in-process Store used for tests and ephemeral runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.CachedResponse
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.CachedResponse)}
}

func memKey(provider, key string) string {
	return provider + "/" + key
}

// Get returns the stored response for key, if any.
func (m *Memory) Get(_ context.Context, provider, key string) (models.CachedResponse, bool, error) {
	m.mu.RLock()
	resp, ok := m.entries[memKey(provider, key)]
	m.mu.RUnlock()
	if !ok {
		m.misses.Add(1)
		return models.CachedResponse{}, false, nil
	}
	m.hits.Add(1)
	return resp, true, nil
}

// Put stores resp unless an entry already exists for its key.
func (m *Memory) Put(_ context.Context, resp models.CachedResponse) error {
	k := memKey(resp.Provider, resp.Key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[k]; exists {
		return nil
	}
	m.entries[k] = resp
	return nil
}

// Clear removes all entries, or one provider's entries when scoped.
func (m *Memory) Clear(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if scope == ScopeAll {
		m.entries = make(map[string]models.CachedResponse)
		return nil
	}
	for k, v := range m.entries {
		if v.Provider == scope {
			delete(m.entries, k)
		}
	}
	return nil
}

// Stats reports entry and hit/miss counts.
func (m *Memory) Stats(_ context.Context) (models.CacheStats, error) {
	m.mu.RLock()
	n := int64(len(m.entries))
	m.mu.RUnlock()
	return models.CacheStats{Entries: n, Hits: m.hits.Load(), Misses: m.misses.Load()}, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error { return nil }
