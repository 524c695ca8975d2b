package models

import "time"

// CachedResponse stores a previously obtained provider response. Entries are
// written once per key and never mutated afterwards.
type CachedResponse struct {
	Key         string    `json:"key"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	ActualModel string    `json:"actual_model,omitempty"`
	Text        string    `json:"response"`
	CreatedAt   time.Time `json:"created_at"`
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
