package vectorstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

const snapshotVersion = 1

// Metadata values from YAML front matter can nest, and timestamp-like values
// decode to time.Time. Register these types so gob can round-trip them inside
// interface{} slots.
func init() {
	gob.Register(map[string]interface{}{})
	gob.Register([]interface{}{})
	gob.Register(time.Time{})
}

// snapshot is the on-disk gob form of a SnapshotStore.
type snapshot struct {
	Version    int
	Dimensions int
	Embeddings [][]float32
	Contents   []string
	Metadata   []map[string]interface{}
	ChunkIDs   []string
}

// SnapshotStore keeps all entries in memory and writes a gob snapshot to disk
// after every mutation. Lookups scan the full set, which is fine for corpora in
// the tens of thousands of chunks.
type SnapshotStore struct {
	mu         sync.RWMutex
	dimensions int
	path       string
	embeddings [][]float32
	contents   []string
	metadata   []map[string]interface{}
	chunkIDs   []string
	logger     *zap.Logger
}

// NewSnapshotStore opens the store backed by the snapshot file at path. A
// missing file starts empty; an unreadable or mismatched snapshot is discarded
// with a warning rather than failing startup.
func NewSnapshotStore(path string, dimensions int, logger *zap.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dimensions)
	}
	s := &SnapshotStore{
		dimensions: dimensions,
		path:       path,
		embeddings: [][]float32{},
		contents:   []string{},
		metadata:   []map[string]interface{}{},
		chunkIDs:   []string{},
		logger:     logger,
	}
	if err := s.load(); err != nil {
		logger.Warn("discarding unreadable snapshot, starting empty",
			zap.String("path", path), zap.Error(err))
		s.reset()
	}
	return s, nil
}

func (s *SnapshotStore) reset() {
	s.embeddings = [][]float32{}
	s.contents = []string{}
	s.metadata = []map[string]interface{}{}
	s.chunkIDs = []string{}
}

func (s *SnapshotStore) load() error {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	var snap snapshot
	if err := gob.NewDecoder(f).Decode(&snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	if snap.Dimensions != s.dimensions {
		return fmt.Errorf("snapshot dimensions %d do not match configured %d", snap.Dimensions, s.dimensions)
	}
	n := len(snap.Embeddings)
	if len(snap.Contents) != n || len(snap.Metadata) != n || len(snap.ChunkIDs) != n {
		return fmt.Errorf("snapshot arrays misaligned")
	}
	s.embeddings = snap.Embeddings
	s.contents = snap.Contents
	s.metadata = snap.Metadata
	s.chunkIDs = snap.ChunkIDs
	return nil
}

// persist writes the snapshot through a temp file and rename so a crash never
// leaves a half-written snapshot behind. Caller must hold the lock.
func (s *SnapshotStore) persist() error {
	if s.path == "" {
		return nil
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	snap := snapshot{
		Version:    snapshotVersion,
		Dimensions: s.dimensions,
		Embeddings: s.embeddings,
		Contents:   s.contents,
		Metadata:   s.metadata,
		ChunkIDs:   s.chunkIDs,
	}
	if err := gob.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Append extends all four arrays and persists the snapshot. On persistence
// failure the in-memory state keeps the new entries but the error is surfaced
// so callers can decide whether to rebuild.
func (s *SnapshotStore) Append(ctx context.Context, embeddings [][]float32, contents []string, metadatas []map[string]interface{}, chunkIDs []string) error {
	if err := validateBatch(s.dimensions, embeddings, contents, metadatas, chunkIDs); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.embeddings = append(s.embeddings, embeddings...)
	s.contents = append(s.contents, contents...)
	s.metadata = append(s.metadata, metadatas...)
	s.chunkIDs = append(s.chunkIDs, chunkIDs...)
	if err := s.persist(); err != nil {
		return fmt.Errorf("append succeeded in memory but snapshot failed: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Lookup(ctx context.Context, query []float32, topK int, threshold float64) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rank(s.embeddings, s.contents, s.metadata, s.chunkIDs, query, topK, threshold), nil
}

func (s *SnapshotStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings)
}

func (s *SnapshotStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return s.persist()
}

func (s *SnapshotStore) Close() error {
	return nil
}
