// Package retriever turns user queries into ranked context for response
// generation.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

// Retriever embeds queries and looks them up in the vector store.
type Retriever struct {
	store    vectorstore.Store
	embedder embedding.Embedder
}

func NewRetriever(store vectorstore.Store, embedder embedding.Embedder) *Retriever {
	return &Retriever{store: store, embedder: embedder}
}

// Retrieve returns the topK chunks with similarity at or above threshold for
// query, most similar first.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) ([]models.SearchResult, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.store.Lookup(ctx, vec, topK, threshold)
}

// HasRelevantContent reports whether any chunk clears the threshold for query.
func (r *Retriever) HasRelevantContent(ctx context.Context, query string, threshold float64) (bool, error) {
	results, err := r.Retrieve(ctx, query, 1, threshold)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

// FormatContext renders results as a context block for the generator: one
// stanza per result with source, section, title, content, and score, separated
// by blank lines. No results yields "".
func FormatContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	parts := make([]string, 0, len(results))
	for _, result := range results {
		title := metadataString(result.Metadata, "title", "Untitled")
		section := metadataString(result.Metadata, "section", "General Section")
		source := metadataString(result.Metadata, "source_file", "Unknown")

		parts = append(parts, fmt.Sprintf(
			"Source: %s\nSection: %s\nTitle: %s\n\nContent: %s\n\nRelevance Score: %.3f\n---",
			source, section, title, result.Content, result.Similarity))
	}
	return strings.Join(parts, "\n\n")
}

// ChunkMetadata projects results into source descriptors for API responses.
func ChunkMetadata(results []models.SearchResult) []models.Source {
	sources := make([]models.Source, 0, len(results))
	for _, result := range results {
		sources = append(sources, models.Source{
			SourceFile: metadataString(result.Metadata, "source_file", ""),
			Section:    metadataString(result.Metadata, "section", ""),
			Title:      metadataString(result.Metadata, "title", ""),
			Chapter:    metadataString(result.Metadata, "chapter", ""),
			Similarity: result.Similarity,
		})
	}
	return sources
}

func metadataString(metadata map[string]interface{}, key, fallback string) string {
	if v, ok := metadata[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
