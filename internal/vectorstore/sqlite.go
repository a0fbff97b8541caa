package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStore persists entries in a chunks table and mirrors them in memory so
// lookups never touch the database. Position order in the table is insertion
// order, which the mirror preserves on reload.
type SQLiteStore struct {
	mu         sync.RWMutex
	db         *sql.DB
	dimensions int
	embeddings [][]float32
	contents   []string
	metadata   []map[string]interface{}
	chunkIDs   []string
	logger     *zap.Logger
}

// NewSQLiteStore opens or creates the database at dbPath, initializes the
// schema, and loads all stored chunks into memory. Rows that fail to decode are
// treated as corruption: the table is cleared and the store starts empty.
func NewSQLiteStore(dbPath string, dimensions int, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %d", dimensions)
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		chunk_id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s := &SQLiteStore{
		db:         db,
		dimensions: dimensions,
		embeddings: [][]float32{},
		contents:   []string{},
		metadata:   []map[string]interface{}{},
		chunkIDs:   []string{},
		logger:     logger,
	}
	if err := s.loadAll(); err != nil {
		logger.Warn("discarding unreadable chunk table, starting empty",
			zap.String("path", dbPath), zap.Error(err))
		if _, derr := db.Exec(`DELETE FROM chunks`); derr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to reset corrupt chunk table: %w", derr)
		}
		s.embeddings = [][]float32{}
		s.contents = []string{}
		s.metadata = []map[string]interface{}{}
		s.chunkIDs = []string{}
	}
	return s, nil
}

func (s *SQLiteStore) loadAll() error {
	rows, err := s.db.Query(`SELECT chunk_id, content, metadata, embedding FROM chunks ORDER BY position`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var chunkID, content string
		var metadataJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&chunkID, &content, &metadataJSON, &blob); err != nil {
			return err
		}
		emb, err := bytesToFloat32Slice(blob)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", chunkID, err)
		}
		if len(emb) != s.dimensions {
			return fmt.Errorf("chunk %s: embedding dimension %d does not match configured %d",
				chunkID, len(emb), s.dimensions)
		}
		var meta map[string]interface{}
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &meta); err != nil {
				return fmt.Errorf("chunk %s: failed to unmarshal metadata: %w", chunkID, err)
			}
		}
		s.embeddings = append(s.embeddings, emb)
		s.contents = append(s.contents, content)
		s.metadata = append(s.metadata, meta)
		s.chunkIDs = append(s.chunkIDs, chunkID)
	}
	return rows.Err()
}

// Append inserts the batch in a single transaction and extends the in-memory
// mirror only after the commit succeeds.
func (s *SQLiteStore) Append(ctx context.Context, embeddings [][]float32, contents []string, metadatas []map[string]interface{}, chunkIDs []string) error {
	if err := validateBatch(s.dimensions, embeddings, contents, metadatas, chunkIDs); err != nil {
		return err
	}
	if len(embeddings) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (chunk_id, content, metadata, embedding) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range embeddings {
		metadataJSON, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		blob := float32SliceToBytes(embeddings[i])
		if _, err := stmt.ExecContext(ctx, chunkIDs[i], contents[i], string(metadataJSON), blob); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.embeddings = append(s.embeddings, embeddings...)
	s.contents = append(s.contents, contents...)
	s.metadata = append(s.metadata, metadatas...)
	s.chunkIDs = append(s.chunkIDs, chunkIDs...)
	return nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, query []float32, topK int, threshold float64) ([]models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rank(s.embeddings, s.contents, s.metadata, s.chunkIDs, query, topK, threshold), nil
}

func (s *SQLiteStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.embeddings)
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.Exec(`DELETE FROM chunks`); err != nil {
		return err
	}
	s.embeddings = [][]float32{}
	s.contents = []string{}
	s.metadata = []map[string]interface{}{}
	s.chunkIDs = []string{}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// float32SliceToBytes encodes a vector as little-endian IEEE 754 bytes.
func float32SliceToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func bytesToFloat32Slice(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
