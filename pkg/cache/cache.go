// Package cache defines the content-addressed response store consulted
// before any provider call.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// ScopeAll clears every entry regardless of provider.
const ScopeAll = ""

// Key computes the deterministic digest identifying a unique request.
// Identical inputs always yield identical keys; changing any field changes
// the key.
func Key(system, user, model, provider string, index int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", system, user, model, provider, index)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Store is the persistence capability behind the cache. Implementations must
// be safe for concurrent use. Put is idempotent: the first writer wins and a
// second Put for the same key is a no-op. Stores never evict on their own;
// entries disappear only through Clear.
type Store interface {
	// Get returns the cached response for key, or ok=false on a miss.
	// A corrupt or unreadable entry is reported as a miss, not an error.
	Get(ctx context.Context, provider, key string) (models.CachedResponse, bool, error)

	// Put stores a response under its key. First writer wins.
	Put(ctx context.Context, resp models.CachedResponse) error

	// Clear removes entries. Scope is ScopeAll or a provider name, which
	// limits removal to that provider's namespace.
	Clear(ctx context.Context, scope string) error

	// Stats reports entry and hit/miss counts.
	Stats(ctx context.Context) (models.CacheStats, error)

	// Close releases any underlying resources.
	Close() error
}
