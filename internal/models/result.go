package models

// SearchResult is a single similarity hit against the vector store. It is a
// read-only projection computed at query time and never persisted.
type SearchResult struct {
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Similarity float64                `json:"similarity"`
	ChunkID    string                 `json:"chunk_id"`
}

// Source is the metadata projection of a retrieved chunk returned to callers.
type Source struct {
	SourceFile string  `json:"source_file"`
	Section    string  `json:"section"`
	Title      string  `json:"title"`
	Chapter    string  `json:"chapter"`
	Similarity float64 `json:"similarity"`
}

// QueryResult is the rich per-query result. The HTTP chat endpoint exposes only
// Reply; internal callers get the full shape.
type QueryResult struct {
	Reply                   string   `json:"reply"`
	Sources                 []Source `json:"sources"`
	RetrievedChunks         int      `json:"retrieved_chunks"`
	Authenticated           bool     `json:"authenticated"`
	SelectedTextExplanation bool     `json:"selected_text_explanation"`
}
