package responder

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// NoContentMessage is the grounded refusal used whenever an answer cannot be
// backed by the corpus.
const NoContentMessage = "This information is not available in the book. The AI assistant can only provide information based on the content in this book."

// shortRefusal is the normalized form returned when the generator itself
// refuses.
const shortRefusal = "This information is not available in the book."

const (
	maxSelectedTextLen = 2000
	maxContextLen      = 3000
	fallbackPreviewLen = 200
	errorPreviewLen    = 150
)

// Responder turns a query plus retrieved context (or user-selected text) into
// a reply. With a nil generator it answers from templates alone; with one, the
// generator's output is post-checked so ungrounded or refused answers collapse
// to the standard refusal.
type Responder struct {
	generator   Generator
	corpusTitle string
	logger      *zap.Logger
}

// Option configures a Responder.
type Option func(*Responder)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Responder) {
		r.logger = logger
	}
}

// NewResponder creates a responder. generator may be nil for template-only
// operation.
func NewResponder(generator Generator, corpusTitle string, opts ...Option) *Responder {
	r := &Responder{
		generator:   generator,
		corpusTitle: corpusTitle,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GenerateResponse composes a reply. Selected text takes priority over
// retrieved context; empty context yields the refusal message. This method
// never fails: generator errors degrade to template answers.
func (r *Responder) GenerateResponse(ctx context.Context, query, contextText, selectedText string) string {
	if selectedText != "" {
		return r.explainSelectedText(ctx, selectedText, query)
	}
	if strings.TrimSpace(contextText) == "" {
		return NoContentMessage
	}
	return r.contextualResponse(ctx, query, contextText)
}

// explainSelectedText answers a query about text the user highlighted. The
// query's wording picks the mode: explain, summarize, or simplify.
func (r *Responder) explainSelectedText(ctx context.Context, selectedText, query string) string {
	selectedText = utils.TruncateMarker(selectedText, maxSelectedTextLen, "... [text truncated for processing]")

	if r.generator == nil {
		switch classifyIntent(query) {
		case intentExplain:
			return fmt.Sprintf("I can help explain this text from the book:\n\n%s\n\nThis text covers important concepts related to the topic you asked about.", selectedText)
		case intentSummarize:
			return fmt.Sprintf("Here's a summary of the selected text:\n\n%s", utils.Truncate(selectedText, fallbackPreviewLen))
		default:
			return fmt.Sprintf("Here's the selected text simplified:\n\n%s", selectedText)
		}
	}

	prompt := fmt.Sprintf(`You are an AI assistant for the book %q.
You must only provide information that is contained in the book.
Do not use external knowledge or make up information.

Selected Text:
%s

User Query:
%s

Explain the selected text in simple language based only on the book content.
Focus on making the concepts easy to understand while staying accurate to the book.
If the selected text is clear and complete as is, provide context or additional explanation from the book.`,
		r.corpusTitle, selectedText, query)

	reply, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("selected-text generation failed, using fallback", zap.Error(err))
		return fmt.Sprintf("Here's the selected text: %s [Explanation generated without LLM due to error]",
			utils.Truncate(selectedText, fallbackPreviewLen))
	}
	return strings.TrimSpace(reply)
}

// contextualResponse answers from retrieved context, normalizing generator
// refusals and implausibly short answers to the standard refusal.
func (r *Responder) contextualResponse(ctx context.Context, query, contextText string) string {
	contextText = utils.TruncateMarker(contextText, maxContextLen, "... [context truncated for processing]")

	if r.generator == nil {
		return fmt.Sprintf("Based on the book content, here's what I found about your query '%s':\n\n%s",
			query, utils.Truncate(contextText, fallbackPreviewLen))
	}

	prompt := fmt.Sprintf(`You are an AI assistant for the book %q.
Answer the user's question based strictly and solely on the provided book context.
Do not use any external knowledge or make up information.
If the provided context does not contain relevant information to answer the question, respond with: "This information is not available in the book."

Book Context:
%s

User Question: %s

Provide a detailed answer based strictly on the book content.
If you cannot answer from the provided context, say: "This information is not available in the book."`,
		r.corpusTitle, contextText, query)

	reply, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		r.logger.Warn("contextual generation failed, using fallback", zap.Error(err))
		return fmt.Sprintf("Based on the book: %s [answer generated without LLM due to error]",
			utils.Truncate(contextText, errorPreviewLen))
	}

	reply = strings.TrimSpace(reply)
	if len(reply) < 10 || strings.Contains(strings.ToLower(reply), "not available in the book") {
		return shortRefusal
	}
	return reply
}

// FormatSources renders up to the top three results as a source list appended
// to a reply. No results yields "".
func FormatSources(results []models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	limit := len(results)
	if limit > 3 {
		limit = 3
	}
	lines := make([]string, 0, limit)
	for _, result := range results[:limit] {
		sourceFile, ok := result.Metadata["source_file"].(string)
		if !ok || sourceFile == "" {
			sourceFile = "Unknown"
		}
		section, ok := result.Metadata["section"].(string)
		if !ok || section == "" {
			section = "General Section"
		}
		lines = append(lines, fmt.Sprintf("- %s (%s)", section, sourceFile))
	}
	return "\n\nSources referenced: " + strings.Join(lines, "\n")
}

type intent int

const (
	intentSimplify intent = iota
	intentExplain
	intentSummarize
)

// classifyIntent picks the template mode from the query wording. Explain wins
// over summarize when both appear, matching how users phrase follow-ups.
func classifyIntent(query string) intent {
	q := strings.ToLower(query)
	if strings.Contains(q, "explain") {
		return intentExplain
	}
	if strings.Contains(q, "summarize") {
		return intentSummarize
	}
	return intentSimplify
}
