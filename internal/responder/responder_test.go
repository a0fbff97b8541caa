package responder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

// stubGenerator returns a fixed reply or error.
type stubGenerator struct {
	reply string
	err   error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.reply, g.err
}

func TestGenerateResponse_NoContext(t *testing.T) {
	r := NewResponder(nil, "Test Book")
	got := r.GenerateResponse(context.Background(), "what is x", "", "")
	if got != NoContentMessage {
		t.Errorf("empty context should refuse, got %q", got)
	}
	got = r.GenerateResponse(context.Background(), "what is x", "   \n  ", "")
	if got != NoContentMessage {
		t.Errorf("whitespace context should refuse, got %q", got)
	}
}

func TestGenerateResponse_TemplateContextual(t *testing.T) {
	r := NewResponder(nil, "Test Book")
	got := r.GenerateResponse(context.Background(), "what is x", "Some context about x.", "")
	if !strings.Contains(got, "Based on the book content") || !strings.Contains(got, "what is x") {
		t.Errorf("unexpected template reply: %q", got)
	}
}

func TestGenerateResponse_SelectedTextPriority(t *testing.T) {
	r := NewResponder(nil, "Test Book")
	got := r.GenerateResponse(context.Background(), "please explain this", "retrieved context", "selected passage")
	if !strings.Contains(got, "selected passage") {
		t.Errorf("selected text should drive the reply, got %q", got)
	}
	if strings.Contains(got, "retrieved context") {
		t.Errorf("selected text must take priority over context, got %q", got)
	}
}

func TestGenerateResponse_SelectedTextIntents(t *testing.T) {
	r := NewResponder(nil, "Test Book")

	got := r.GenerateResponse(context.Background(), "please EXPLAIN this", "", "the passage")
	if !strings.Contains(got, "I can help explain this text from the book") {
		t.Errorf("explain intent not detected: %q", got)
	}

	got = r.GenerateResponse(context.Background(), "summarize it for me", "", "the passage")
	if !strings.Contains(got, "Here's a summary of the selected text") {
		t.Errorf("summarize intent not detected: %q", got)
	}

	got = r.GenerateResponse(context.Background(), "make this easier", "", "the passage")
	if !strings.Contains(got, "Here's the selected text simplified") {
		t.Errorf("default intent should simplify: %q", got)
	}
}

func TestGenerateResponse_SelectedTextTruncated(t *testing.T) {
	r := NewResponder(nil, "Test Book")
	long := strings.Repeat("a", 3000)
	got := r.GenerateResponse(context.Background(), "explain", "", long)
	if !strings.Contains(got, "... [text truncated for processing]") {
		t.Error("long selected text should be truncated with marker")
	}
	if strings.Contains(got, strings.Repeat("a", 2001)) {
		t.Error("selected text not cut at the limit")
	}
}

func TestGenerateResponse_GeneratorReply(t *testing.T) {
	r := NewResponder(&stubGenerator{reply: "  A detailed grounded answer about x.  "}, "Test Book")
	got := r.GenerateResponse(context.Background(), "what is x", "context about x", "")
	if got != "A detailed grounded answer about x." {
		t.Errorf("got %q", got)
	}
}

func TestGenerateResponse_RefusalNormalized(t *testing.T) {
	cases := []string{
		"I'm sorry, but that information is NOT AVAILABLE IN THE BOOK you provided.",
		"short",
		"",
	}
	for _, reply := range cases {
		r := NewResponder(&stubGenerator{reply: reply}, "Test Book")
		got := r.GenerateResponse(context.Background(), "what is x", "context", "")
		if got != shortRefusal {
			t.Errorf("reply %q should normalize to refusal, got %q", reply, got)
		}
	}
}

func TestGenerateResponse_GeneratorErrorFallsBack(t *testing.T) {
	r := NewResponder(&stubGenerator{err: errors.New("rate limited")}, "Test Book")
	got := r.GenerateResponse(context.Background(), "what is x", "context about x", "")
	if !strings.Contains(got, "Based on the book:") ||
		!strings.Contains(got, "[answer generated without LLM due to error]") {
		t.Errorf("generator failure should fall back, got %q", got)
	}

	got = r.GenerateResponse(context.Background(), "explain", "", "the passage")
	if !strings.Contains(got, "[Explanation generated without LLM due to error]") {
		t.Errorf("selected-text failure should fall back, got %q", got)
	}
}

func TestGenerateResponse_ContextTruncatedForPrompt(t *testing.T) {
	var captured string
	gen := generatorFunc(func(ctx context.Context, prompt string) (string, error) {
		captured = prompt
		return "A long enough grounded answer.", nil
	})
	r := NewResponder(gen, "Test Book")
	r.GenerateResponse(context.Background(), "q", strings.Repeat("c", 5000), "")
	if !strings.Contains(captured, "... [context truncated for processing]") {
		t.Error("oversized context should be truncated in the prompt")
	}
}

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestFormatSources(t *testing.T) {
	mk := func(section, file string) models.SearchResult {
		return models.SearchResult{Metadata: map[string]interface{}{
			"section": section, "source_file": file,
		}}
	}
	results := []models.SearchResult{
		mk("Basics", "a.md"), mk("Advanced", "b.md"),
		mk("Extras", "c.md"), mk("Overflow", "d.md"),
	}
	got := FormatSources(results)
	if !strings.HasPrefix(got, "\n\nSources referenced: ") {
		t.Errorf("unexpected prefix: %q", got)
	}
	if !strings.Contains(got, "- Basics (a.md)") || !strings.Contains(got, "- Extras (c.md)") {
		t.Errorf("missing source lines: %q", got)
	}
	if strings.Contains(got, "Overflow") {
		t.Errorf("sources should cap at three: %q", got)
	}
}

func TestFormatSources_Empty(t *testing.T) {
	if got := FormatSources(nil); got != "" {
		t.Errorf("no results should format to \"\", got %q", got)
	}
}
