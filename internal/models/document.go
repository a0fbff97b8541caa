// Package models defines core data structures for documents, chunks, and query results.
package models

// Document is a unit of corpus text produced by the loader, typically one section
// of a source file. Metadata carries at minimum source_file, section, title, and
// chapter. Documents are immutable once produced.
type Document struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Chunk is a bounded unit of document text prepared for embedding. Each chunk is
// derived from exactly one document; ChunkID is unique and stable within a build
// ("doc_<i>_chunk_<j>").
type Chunk struct {
	Content  string                 `json:"content"`
	Metadata map[string]interface{} `json:"metadata"`
	ChunkID  string                 `json:"chunk_id"`
}
