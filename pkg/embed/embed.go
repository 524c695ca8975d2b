// Package embed provides the embedding capability used by the fingerprint
// analyzer.
package embed

import "context"

// Embedder converts texts into fixed-dimension numeric vectors. Backends
// must be deterministic: identical input yields an identical vector.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}
