// Package chunker splits documents into semantically coherent, size-bounded chunks.
package chunker

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// semanticKeywords mark short documents that are a single unit (overview pages etc.).
var semanticKeywords = []string{"overview", "introduction", "summary", "conclusion"}

// Chunker splits documents into chunks of at most maxChunkSize characters.
// A chunk may exceed the bound only when a single sentence cannot be split further.
type Chunker struct {
	maxChunkSize int
	overlap      int
}

// NewChunker creates a chunker. overlap is clamped to maxChunkSize/2 when it is
// not smaller than maxChunkSize, so the character-window fallback always makes
// forward progress.
func NewChunker(maxChunkSize, overlap int) *Chunker {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 2
	}
	return &Chunker{
		maxChunkSize: maxChunkSize,
		overlap:      overlap,
	}
}

// Chunk splits documents into chunks with stable IDs ("doc_<i>_chunk_<j>").
// It is deterministic and side-effect free; every non-empty document yields at
// least one chunk.
func (c *Chunker) Chunk(documents []models.Document) []models.Chunk {
	chunks := make([]models.Chunk, 0, len(documents))
	for i, doc := range documents {
		contents, split := c.chunkDocument(doc.Content)
		for j, content := range contents {
			meta := copyMetadata(doc.Metadata)
			if split {
				meta["chunk_size"] = len(content)
			}
			chunks = append(chunks, models.Chunk{
				Content:  content,
				Metadata: meta,
				ChunkID:  fmt.Sprintf("doc_%d_chunk_%d", i, j),
			})
		}
	}
	return chunks
}

// copyMetadata copies document metadata so chunks never share a map.
func copyMetadata(meta map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// chunkDocument returns the chunk contents for a single document and whether
// the document went through splitting. Only split chunks record a chunk_size.
func (c *Chunker) chunkDocument(content string) ([]string, bool) {
	if isSemanticUnit(content) {
		return []string{content}, false
	}
	parts := c.splitByParagraphs(content)
	if len(parts) == 0 {
		// Degenerate input (e.g. only blank lines): still emit one bounded chunk.
		s := strings.TrimSpace(content)
		if len(s) > c.maxChunkSize {
			s = s[:c.maxChunkSize]
		}
		return []string{s}, true
	}
	return parts, true
}

// isSemanticUnit reports whether content is already a single coherent unit:
// few lines, a leading heading, short content, or a short overview-style page.
func isSemanticUnit(content string) bool {
	if strings.Count(content, "\n") < 5 {
		return true
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) == 0 {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(lines[0]), "#") {
		return true
	}
	if len(content) < 500 {
		return true
	}
	if len(lines) < 10 {
		lower := strings.ToLower(content)
		for _, kw := range semanticKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// splitByParagraphs accumulates blank-line-delimited paragraphs greedily, flushing
// whenever the next paragraph would push the buffer over the bound, then runs a
// final size-enforcement pass over the assembled chunks.
func (c *Chunker) splitByParagraphs(content string) []string {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []string
	current := ""
	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(current)+len(paragraph) > c.maxChunkSize {
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			if len(paragraph) > c.maxChunkSize {
				sub := c.splitBySentences(paragraph)
				chunks = append(chunks, sub[:len(sub)-1]...)
				current = sub[len(sub)-1]
			} else {
				current = paragraph
			}
		} else if current == "" {
			current = paragraph
		} else {
			current += "\n\n" + paragraph
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}

	// Enforcement pass: anything still over the bound gets re-split.
	final := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk) > c.maxChunkSize {
			final = append(final, c.forceSplit(chunk)...)
		} else {
			final = append(final, chunk)
		}
	}
	return final
}

// splitBySentences greedily accumulates sentences up to the bound. Always returns
// at least one element.
func (c *Chunker) splitBySentences(paragraph string) []string {
	sentences := splitSentences(paragraph)

	var chunks []string
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence) > c.maxChunkSize {
			if strings.TrimSpace(current) != "" {
				chunks = append(chunks, strings.TrimSpace(current))
			}
			current = sentence
		} else if current == "" {
			current = sentence
		} else {
			current += " " + sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	if len(chunks) == 0 {
		if len(paragraph) > c.maxChunkSize {
			return []string{paragraph[:c.maxChunkSize]}
		}
		return []string{paragraph}
	}
	return chunks
}

// forceSplit re-splits an oversized chunk by sentence, falling back to character
// windows when a single sentence exceeds the bound.
func (c *Chunker) forceSplit(chunk string) []string {
	sentences := splitSentences(chunk)
	longest := 0
	for _, s := range sentences {
		if len(s) > longest {
			longest = len(s)
		}
	}
	if len(sentences) == 1 || longest > c.maxChunkSize {
		return c.splitByCharacters(chunk)
	}
	return c.splitBySentences(chunk)
}

// splitByCharacters is the last-resort fixed-width window split. Each window is the
// maxChunkSize characters ending at the step position, so consecutive windows share
// overlap characters of back-reference. NewChunker guarantees overlap < maxChunkSize,
// so the step is always positive.
func (c *Chunker) splitByCharacters(chunk string) []string {
	runes := []rune(chunk)
	if len(runes) <= c.maxChunkSize {
		return []string{chunk}
	}
	step := c.maxChunkSize - c.overlap
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + c.maxChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		start := end - c.maxChunkSize
		if start < 0 {
			start = 0
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// splitSentences splits text at sentence-ending punctuation (. ! ?) followed by
// whitespace. The punctuation stays with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && isSpace(runes[i+1]) {
			sentences = append(sentences, string(runes[start:i+1]))
			j := i + 1
			for j < len(runes) && isSpace(runes[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	if len(sentences) == 0 {
		return []string{text}
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
