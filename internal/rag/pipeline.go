// Package rag wires loading, chunking, embedding, retrieval, and response
// generation into one query pipeline.
package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/auth"
	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/loader"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/responder"
	"github.com/hyperjump/kotae/internal/retriever"
	"github.com/hyperjump/kotae/internal/vectorstore"
	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrorReply is the catch-all reply when query processing fails internally.
const ErrorReply = "I'm sorry, I encountered an error processing your request. Please try again."

const maxSelectedTextLen = 5000

// Stats summarizes the pipeline's index state.
type Stats struct {
	TotalEmbeddings  int    `json:"total_embeddings"`
	EmbeddingsLoaded bool   `json:"embeddings_loaded"`
	DocsPath         string `json:"docs_path"`
}

// Pipeline orchestrates the full question answering flow. Query never returns
// an error: every failure path maps to a user-facing reply.
type Pipeline struct {
	loader    *loader.Loader
	chunker   *chunker.Chunker
	embedder  *embedding.FailSoft
	store     vectorstore.Store
	retriever *retriever.Retriever
	responder *responder.Responder
	auth      *auth.Authenticator
	topK      int
	threshold float64
	docsPath  string
	logger    *zap.Logger

	mu     sync.Mutex // serializes index builds
	loaded bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline assembles the pipeline from its components. The retriever is
// built internally from the store and embedder.
func NewPipeline(cfg *config.Config, ld *loader.Loader, ck *chunker.Chunker, emb *embedding.FailSoft, store vectorstore.Store, rs *responder.Responder, authn *auth.Authenticator, opts ...Option) *Pipeline {
	p := &Pipeline{
		loader:    ld,
		chunker:   ck,
		embedder:  emb,
		store:     store,
		retriever: retriever.NewRetriever(store, emb),
		responder: rs,
		auth:      authn,
		topK:      cfg.Retrieval.TopK,
		threshold: cfg.Retrieval.Threshold,
		docsPath:  cfg.Docs.Path,
		logger:    zap.NewNop(),
		loaded:    store.Count() > 0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BuildIndex loads, chunks, embeds, and stores the corpus, returning the
// number of chunks indexed. An already populated store is left untouched
// unless force is set, in which case it is cleared and rebuilt.
func (p *Pipeline) BuildIndex(ctx context.Context, force bool) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if count := p.store.Count(); count > 0 && !force {
		p.logger.Info("index already populated, skipping build", zap.Int("embeddings", count))
		p.loaded = true
		return count, nil
	}
	if force {
		if err := p.store.Clear(); err != nil {
			return 0, fmt.Errorf("failed to clear index: %w", err)
		}
	}

	documents, err := p.loader.Load()
	if err != nil {
		return 0, fmt.Errorf("failed to load documents: %w", err)
	}
	p.logger.Info("loaded documents", zap.Int("documents", len(documents)))

	chunks := p.chunker.Chunk(documents)
	p.logger.Info("chunked documents", zap.Int("chunks", len(chunks)))
	if len(chunks) == 0 {
		p.loaded = true
		return 0, nil
	}

	contents := make([]string, len(chunks))
	metadatas := make([]map[string]interface{}, len(chunks))
	chunkIDs := make([]string, len(chunks))
	for i, chunk := range chunks {
		contents[i] = chunk.Content
		metadatas[i] = chunk.Metadata
		chunkIDs[i] = chunk.ChunkID
	}

	embeddings, statuses := p.embedder.EmbedTexts(ctx, contents)
	degraded := 0
	for _, s := range statuses {
		if s == embedding.StatusDegraded {
			degraded++
		}
	}
	if degraded > 0 {
		p.logger.Warn("some chunks indexed with degraded embeddings",
			zap.Int("degraded", degraded), zap.Int("total", len(chunks)))
	}

	if err := p.store.Append(ctx, embeddings, contents, metadatas, chunkIDs); err != nil {
		return 0, fmt.Errorf("failed to store embeddings: %w", err)
	}
	p.loaded = true
	p.logger.Info("index build complete", zap.Int("embeddings", len(embeddings)))
	return len(chunks), nil
}

// Query answers a chat request. Authentication is checked before any other
// work; selected text bypasses retrieval entirely. Failures degrade to
// ErrorReply rather than surfacing errors.
func (p *Pipeline) Query(ctx context.Context, req models.ChatRequest) models.QueryResult {
	queryID := uuid.New().String()
	log := p.logger.With(zap.String("query_id", queryID))

	if !p.auth.Verify(req.AuthToken) {
		log.Info("rejected unauthenticated query")
		return models.QueryResult{
			Reply:   auth.RequiredMessage,
			Sources: []models.Source{},
		}
	}

	if hasContent(req.SelectedText) {
		selected := utils.TruncateMarker(req.SelectedText, maxSelectedTextLen, "... [truncated]")
		reply := p.responder.GenerateResponse(ctx, req.Message, "", selected)
		log.Info("answered selected-text query", zap.Int("selected_len", len(req.SelectedText)))
		return models.QueryResult{
			Reply:                   reply,
			Sources:                 []models.Source{},
			Authenticated:           true,
			SelectedTextExplanation: true,
		}
	}

	results, err := p.retriever.Retrieve(ctx, req.Message, p.topK, p.threshold)
	if err != nil {
		log.Error("retrieval failed", zap.Error(err))
		return models.QueryResult{
			Reply:   ErrorReply,
			Sources: []models.Source{},
		}
	}

	contextText := retriever.FormatContext(results)
	reply := p.responder.GenerateResponse(ctx, req.Message, contextText, "")
	if sources := responder.FormatSources(results); sources != "" {
		reply += sources
	}

	log.Info("answered query", zap.Int("retrieved_chunks", len(results)))
	return models.QueryResult{
		Reply:           reply,
		Sources:         retriever.ChunkMetadata(results),
		RetrievedChunks: len(results),
		Authenticated:   true,
	}
}

// HasRelevantContent reports whether the index holds anything relevant to
// query at the configured threshold.
func (p *Pipeline) HasRelevantContent(ctx context.Context, query string) (bool, error) {
	return p.retriever.HasRelevantContent(ctx, query, p.threshold)
}

// Stats returns index statistics.
func (p *Pipeline) Stats() Stats {
	return Stats{
		TotalEmbeddings:  p.store.Count(),
		EmbeddingsLoaded: p.loaded,
		DocsPath:         p.docsPath,
	}
}

// Clear drops all stored embeddings.
func (p *Pipeline) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.store.Clear(); err != nil {
		return err
	}
	p.loaded = false
	return nil
}

func hasContent(s string) bool {
	return strings.TrimSpace(s) != ""
}
