// Package benchmark measures chunking and similarity lookup throughput.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vectorstore"
)

func randomVector(r *rand.Rand, dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = r.Float32()*2 - 1
	}
	return vec
}

func BenchmarkLookup(b *testing.B) {
	const dim = 384
	r := rand.New(rand.NewSource(1))

	store, err := vectorstore.NewSnapshotStore(filepath.Join(b.TempDir(), "idx"), dim, nil)
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()

	const n = 5000
	embeddings := make([][]float32, n)
	contents := make([]string, n)
	metadatas := make([]map[string]interface{}, n)
	chunkIDs := make([]string, n)
	for i := 0; i < n; i++ {
		embeddings[i] = randomVector(r, dim)
		contents[i] = fmt.Sprintf("chunk %d", i)
		metadatas[i] = map[string]interface{}{"source_file": "bench.md"}
		chunkIDs[i] = fmt.Sprintf("doc_0_chunk_%d", i)
	}
	if err := store.Append(context.Background(), embeddings, contents, metadatas, chunkIDs); err != nil {
		b.Fatal(err)
	}

	query := randomVector(r, dim)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := store.Lookup(context.Background(), query, 5, 0.3); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkChunk(b *testing.B) {
	paragraph := strings.Repeat("Robots use sensors and actuators to interact with the world. ", 8)
	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString(paragraph)
		sb.WriteString("\n\n")
	}
	docs := []models.Document{{
		Content:  sb.String(),
		Metadata: map[string]interface{}{"source_file": "bench.md"},
	}}
	ck := chunker.NewChunker(1000, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ck.Chunk(docs)
	}
}
