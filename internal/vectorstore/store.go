// Package vectorstore provides append-only vector stores with persisted snapshots
// and cosine-similarity lookup.
package vectorstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/kotae/internal/models"
)

// Store holds (embedding, content, metadata, chunk ID) tuples as four parallel
// arrays and answers ranked similarity lookups. Entries are append-only; the only
// deletion is Clear. Implementations persist on every Append and Clear.
type Store interface {
	// Append atomically extends all four arrays by the same count and persists.
	// Either the whole batch is accepted or none of it. Persistence failures are
	// returned to the caller.
	Append(ctx context.Context, embeddings [][]float32, contents []string, metadatas []map[string]interface{}, chunkIDs []string) error
	// Lookup returns at most topK entries with cosine similarity >= threshold
	// against query, sorted by similarity descending. Ties break by insertion
	// order (earlier entries first). An empty store returns an empty slice.
	Lookup(ctx context.Context, query []float32, topK int, threshold float64) ([]models.SearchResult, error)
	// Count returns the number of stored entries.
	Count() int
	// Clear drops all entries and persists the empty state. Idempotent.
	Clear() error
	Close() error
}

// validateBatch checks the four parallel slices are non-nil-aligned and of equal
// length, and that every embedding matches the expected dimension.
func validateBatch(dimensions int, embeddings [][]float32, contents []string, metadatas []map[string]interface{}, chunkIDs []string) error {
	n := len(embeddings)
	if len(contents) != n || len(metadatas) != n || len(chunkIDs) != n {
		return fmt.Errorf("batch length mismatch: %d embeddings, %d contents, %d metadatas, %d ids",
			n, len(contents), len(metadatas), len(chunkIDs))
	}
	for i, emb := range embeddings {
		if len(emb) != dimensions {
			return fmt.Errorf("embedding %d dimension mismatch: got %d, expected %d", i, len(emb), dimensions)
		}
	}
	return nil
}

// rank scores query against every stored embedding and returns the topK results
// at or above threshold, sorted by similarity descending with insertion-order
// tie-break. The four slices must be aligned.
func rank(embeddings [][]float32, contents []string, metadatas []map[string]interface{}, chunkIDs []string, query []float32, topK int, threshold float64) []models.SearchResult {
	if topK <= 0 || len(embeddings) == 0 {
		return []models.SearchResult{}
	}
	type scored struct {
		index int
		score float64
	}
	scores := make([]scored, len(embeddings))
	for i, emb := range embeddings {
		scores[i] = scored{index: i, score: Cosine(query, emb)}
	}
	// Stable sort keeps insertion order among equal scores, making results
	// reproducible across runs.
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]models.SearchResult, 0, topK)
	for _, s := range scores[:topK] {
		if s.score < threshold {
			continue
		}
		results = append(results, models.SearchResult{
			Content:    contents[s.index],
			Metadata:   metadatas[s.index],
			Similarity: s.score,
			ChunkID:    chunkIDs[s.index],
		})
	}
	return results
}
