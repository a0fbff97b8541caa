package embedding

import (
	"context"
	"math"
)

// HashEmbedder is a deterministic, dependency-free embedder: the vector is derived
// from a text hash, so identical text always embeds identically. It serves as the
// offline backend when no ONNX model is available, and as the test embedder.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns an embedder producing deterministic unit-length vectors
// of the given dimension.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return ZeroVector(e.dimensions), nil
	}
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	// Normalize to unit length for cosine similarity.
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum > 0 {
		norm := 1.0 / math.Sqrt(sum)
		for i := range emb {
			emb[i] *= float32(norm)
		}
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text, preserving order.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
