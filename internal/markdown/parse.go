// Package markdown turns vault Markdown files into theory content bodies.
package markdown

import (
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// NoTitle is the title of documents without frontmatter title or H1 heading.
const NoTitle = "No title found"

var (
	wikilinkRe = regexp.MustCompile(`(?s)\[\[(.*?)(?:\|(.*?))?\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

// Document holds the parts of a Markdown file.
type Document struct {
	Frontmatter map[string]any
	// Body is the Markdown source without frontmatter and without the
	// heading the title was taken from.
	Body  string
	Title string
	Tags  []string
}

// Parse extracts frontmatter, title, body and tags.
func Parse(data []byte) *Document {
	fm, body := splitFrontmatter(data)
	title, body := deriveTitle(fm, body)
	return &Document{
		Frontmatter: fm,
		Body:        body,
		Title:       title,
		Tags:        extractTags(body, fm),
	}
}

// splitFrontmatter separates YAML frontmatter between leading --- fences from
// the body. Missing or invalid frontmatter leaves the whole input as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// deriveTitle prefers the frontmatter title, then the first H1 heading, which
// is then dropped from the body so it is not rendered twice.
func deriveTitle(fm map[string]any, body string) (string, string) {
	if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t), body
	}
	lines := strings.Split(body, "\n")
	inFence := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(trimmed, "# ") {
			rest := append(lines[:i:i], lines[i+1:]...)
			return strings.TrimSpace(trimmed[2:]), strings.Join(rest, "\n")
		}
	}
	return NoTitle, body
}

// extractTags collects frontmatter "tags" followed by inline #tags.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if list, ok := fm["tags"].([]any); ok {
		for _, item := range list {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	}
	for _, m := range tagRe.FindAllStringSubmatch(stripFences(body), -1) {
		add(m[1])
	}
	return out
}

// stripFences blanks fenced code blocks so "# comment" lines in code are not
// taken for tags.
func stripFences(body string) string {
	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			b.WriteByte('\n')
			continue
		}
		if !inFence {
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
