package embedding

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Status reports why a returned vector looks the way it does, so callers can
// tell a true zero-input embedding apart from a degraded one.
type Status int

const (
	// StatusOK means the backend produced the vector.
	StatusOK Status = iota
	// StatusEmptyInput means the input was blank and a zero vector was returned.
	StatusEmptyInput
	// StatusDegraded means the backend failed and a zero vector was substituted.
	StatusDegraded
)

// FailSoft wraps an Embedder so that embedding failures never abort indexing or a
// query: failed or blank inputs yield zero vectors of the backend's dimension.
// Failures are logged, not returned.
type FailSoft struct {
	inner  Embedder
	logger *zap.Logger
}

// NewFailSoft wraps inner. logger may be nil.
func NewFailSoft(inner Embedder, logger *zap.Logger) *FailSoft {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailSoft{inner: inner, logger: logger}
}

// Embed never returns an error: blank input and backend failure both yield a zero
// vector. Use EmbedTexts when the caller needs to distinguish the two.
func (f *FailSoft) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, _ := f.embedOne(ctx, text)
	return vec, nil
}

// EmbedBatch never returns an error; affected inputs degrade to zero vectors.
func (f *FailSoft) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, _ := f.EmbedTexts(ctx, texts)
	return vectors, nil
}

// EmbedTexts embeds texts preserving order and reports a per-input Status. The
// underlying batch call is one-shot: if it fails, every non-blank input in the
// batch degrades to a zero vector.
func (f *FailSoft) EmbedTexts(ctx context.Context, texts []string) ([][]float32, []Status) {
	out := make([][]float32, len(texts))
	statuses := make([]Status, len(texts))

	var nonEmpty []string
	var positions []int
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = ZeroVector(f.inner.Dimensions())
			statuses[i] = StatusEmptyInput
			continue
		}
		nonEmpty = append(nonEmpty, t)
		positions = append(positions, i)
	}
	if len(nonEmpty) == 0 {
		return out, statuses
	}

	vectors, err := f.inner.EmbedBatch(ctx, nonEmpty)
	if err != nil || len(vectors) != len(nonEmpty) {
		f.logger.Warn("embedding batch failed, degrading to zero vectors",
			zap.Int("inputs", len(nonEmpty)),
			zap.Error(err))
		for _, pos := range positions {
			out[pos] = ZeroVector(f.inner.Dimensions())
			statuses[pos] = StatusDegraded
		}
		return out, statuses
	}
	for i, pos := range positions {
		out[pos] = vectors[i]
		statuses[pos] = StatusOK
	}
	return out, statuses
}

func (f *FailSoft) embedOne(ctx context.Context, text string) ([]float32, Status) {
	if strings.TrimSpace(text) == "" {
		return ZeroVector(f.inner.Dimensions()), StatusEmptyInput
	}
	vec, err := f.inner.Embed(ctx, text)
	if err != nil || len(vec) != f.inner.Dimensions() {
		f.logger.Warn("embedding failed, degrading to zero vector", zap.Error(err))
		return ZeroVector(f.inner.Dimensions()), StatusDegraded
	}
	return vec, StatusOK
}

// Dimensions returns the wrapped backend's dimension.
func (f *FailSoft) Dimensions() int {
	return f.inner.Dimensions()
}

// Close closes the wrapped backend.
func (f *FailSoft) Close() error {
	return f.inner.Close()
}
