package loader

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseFrontMatter splits a markdown document into its YAML front matter and
// body. Documents without a leading "---" block return an empty map and the
// content unchanged. Malformed YAML is an error; the caller decides whether to
// fall back to treating the whole file as body.
func ParseFrontMatter(content string) (map[string]interface{}, string, error) {
	if !strings.HasPrefix(content, "---\n") && content != "---" && !strings.HasPrefix(content, "---\r\n") {
		return map[string]interface{}{}, content, nil
	}

	rest := content[strings.Index(content, "\n")+1:]
	end := findFrontMatterEnd(rest)
	if end < 0 {
		return map[string]interface{}{}, content, nil
	}

	var metadata map[string]interface{}
	if err := yaml.Unmarshal([]byte(rest[:end]), &metadata); err != nil {
		return nil, "", fmt.Errorf("failed to parse front matter: %w", err)
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	body := rest[end:]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return metadata, body, nil
}

// findFrontMatterEnd returns the offset of the closing "---" line, or -1.
func findFrontMatterEnd(s string) int {
	offset := 0
	for _, line := range strings.SplitAfter(s, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "---" {
			return offset
		}
		offset += len(line)
	}
	return -1
}

// Section is a heading-delimited slice of a document.
type Section struct {
	Title   string
	Content string
}

// SplitSections breaks a markdown body into sections at H2 and H3 headings.
// Content before the first heading keeps mainTitle. An H3 nests under the
// current section as "Parent - Child". Each section's content begins with its
// heading text so the heading survives chunking.
func SplitSections(body, mainTitle string) []Section {
	var sections []Section
	current := Section{Title: mainTitle}
	var buf strings.Builder

	flush := func() {
		content := strings.TrimSpace(buf.String())
		if content != "" {
			current.Content = content
			sections = append(sections, current)
		}
		buf.Reset()
	}

	for _, line := range strings.Split(body, "\n") {
		if heading, ok := matchHeading(line, "## "); ok {
			flush()
			current = Section{Title: heading}
			buf.WriteString(heading)
			buf.WriteString("\n")
			continue
		}
		if heading, ok := matchHeading(line, "### "); ok {
			parent := current.Title
			flush()
			current = Section{Title: parent + " - " + heading}
			buf.WriteString(heading)
			buf.WriteString("\n")
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()
	return sections
}

func matchHeading(line, prefix string) (string, bool) {
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	heading := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	if heading == "" {
		return "", false
	}
	return heading, true
}
