// Package embedding provides text embedding backends and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. EmbedBatch preserves input order
// in its output.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// ZeroVector returns an all-zero vector of the given dimension. Used for empty
// inputs and fail-soft degradation.
func ZeroVector(dimensions int) []float32 {
	return make([]float32, dimensions)
}
