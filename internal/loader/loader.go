// Package loader reads a documentation tree into section-level documents with
// source metadata.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/models"
)

// Loader walks a docs directory and produces one document per heading section.
// Files that fail to read or parse are skipped with a warning so a single bad
// file cannot block an index build.
type Loader struct {
	docsPath    string
	extensions  map[string]bool
	corpusTitle string
	logger      *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader rooted at docsPath that accepts the given file
// extensions (e.g. ".md", ".pdf"). corpusTitle is stamped into every
// document's metadata.
func NewLoader(docsPath string, extensions []string, corpusTitle string, opts ...Option) *Loader {
	extSet := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extSet[strings.ToLower(ext)] = true
	}
	l := &Loader{
		docsPath:    docsPath,
		extensions:  extSet,
		corpusTitle: corpusTitle,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load walks the docs tree and returns all section documents in walk order.
// A missing docs directory is an error; unreadable individual files are not.
func (l *Loader) Load() ([]models.Document, error) {
	if _, err := os.Stat(l.docsPath); err != nil {
		return nil, fmt.Errorf("docs path unavailable: %w", err)
	}

	var documents []models.Document
	err := filepath.Walk(l.docsPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			l.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !l.extensions[ext] {
			return nil
		}
		docs, err := l.loadFile(path, ext)
		if err != nil {
			l.logger.Warn("failed to load file", zap.String("path", path), zap.Error(err))
			return nil
		}
		documents = append(documents, docs...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (l *Loader) loadFile(path, ext string) ([]models.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	relPath, err := filepath.Rel(l.docsPath, path)
	if err != nil {
		relPath = path
	}

	switch ext {
	case ".md", ".mdx":
		return l.loadMarkdown(string(content), path, relPath), nil
	case ".pdf":
		text, err := extractPDF(content)
		if err != nil {
			return nil, err
		}
		return l.singleSection(text, path, relPath), nil
	default:
		return l.singleSection(string(content), path, relPath), nil
	}
}

// loadMarkdown parses optional front matter, derives a title, and splits the
// body into one document per H2/H3 section.
func (l *Loader) loadMarkdown(content, path, relPath string) []models.Document {
	frontMatter, body, err := ParseFrontMatter(content)
	if err != nil {
		l.logger.Warn("ignoring malformed front matter", zap.String("path", path), zap.Error(err))
		frontMatter = map[string]interface{}{}
		body = content
	}

	title, ok := frontMatter["title"].(string)
	if !ok || title == "" {
		title = firstHeading(body)
	}
	if title == "" {
		title = fileStem(path)
	}
	frontMatter["title"] = title

	sections := SplitSections(body, title)
	chapter := chapterFromPath(relPath)

	documents := make([]models.Document, 0, len(sections))
	for _, sec := range sections {
		metadata := make(map[string]interface{}, len(frontMatter)+4)
		for k, v := range frontMatter {
			metadata[k] = v
		}
		metadata["source_file"] = filepath.ToSlash(relPath)
		metadata["section"] = sec.Title
		metadata["chapter"] = chapter
		metadata["book_title"] = l.corpusTitle
		documents = append(documents, models.Document{
			Content:  sec.Content,
			Metadata: metadata,
		})
	}
	return documents
}

func (l *Loader) singleSection(content, path, relPath string) []models.Document {
	text := strings.TrimSpace(content)
	if text == "" {
		return nil
	}
	title := fileStem(path)
	return []models.Document{{
		Content: text,
		Metadata: map[string]interface{}{
			"title":       title,
			"source_file": filepath.ToSlash(relPath),
			"section":     title,
			"chapter":     chapterFromPath(relPath),
			"book_title":  l.corpusTitle,
		},
	}}
}

// firstHeading returns the text of the first level-one heading, or "".
func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// chapterFromPath maps paths like modules/module-01-introduction/... to
// "Module 01 Introduction". Paths outside a modules directory are "General".
func chapterFromPath(relPath string) string {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	for i := 1; i < len(parts); i++ {
		if strings.Contains(strings.ToLower(parts[i]), "module") &&
			strings.Contains(strings.ToLower(parts[i-1]), "modules") {
			name := strings.TrimSuffix(parts[i], filepath.Ext(parts[i]))
			name = strings.ReplaceAll(name, "module-", "Module ")
			name = strings.ReplaceAll(name, "-", " ")
			return titleCase(name)
		}
	}
	return "General"
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 && r[0] >= 'a' && r[0] <= 'z' {
			r[0] = r[0] - 'a' + 'A'
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
