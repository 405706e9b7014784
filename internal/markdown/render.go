package markdown

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/starford/theoria/internal/theory"
)

var (
	escapedDollarRe = regexp.MustCompile(`\\\$`)
	mathBlockRe     = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	mathInlineRe    = regexp.MustCompile(`\$[^$\n]+?\$`)
	placeholderRe   = regexp.MustCompile(`@@MATH(\d+)@@`)
	blockParaRe     = regexp.MustCompile(`(?s)<p>\s*(\$\$.*?\$\$)\s*</p>`)
	inlineParaRe    = regexp.MustCompile(`(?s)<p>\s*(\$[^$]*?\$)\s*</p>`)
)

const escapedDollar = "@@DOLLAR@@"

// LinkResolver maps a wikilink target to a vault-relative file path.
type LinkResolver interface {
	Find(name string) (string, bool)
}

// Renderer converts vault Markdown into theory content bodies.
type Renderer struct {
	md       goldmark.Markdown
	links    LinkResolver
	sanitize *bluemonday.Policy
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLinks resolves [[wikilinks]] through lr.
func WithLinks(lr LinkResolver) Option {
	return func(r *Renderer) { r.links = lr }
}

// WithSanitize runs rendered HTML through a UGC policy. Content from the
// vault is trusted, so this is off unless configured.
func WithSanitize(enabled bool) Option {
	return func(r *Renderer) {
		if !enabled {
			r.sanitize = nil
			return
		}
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
		r.sanitize = p
	}
}

// NewRenderer builds a renderer with the extension set used for theory pages.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.DefinitionList,
				extension.Typographer,
			),
			goldmark.WithParserOptions(
				parser.WithAutoHeadingID(),
				parser.WithAttribute(),
			),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithUnsafe(),
			),
		),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render parses data and returns its title and HTML body.
func (r *Renderer) Render(data []byte) (theory.Rendered, error) {
	doc := Parse(data)

	protected, math := protectMath(doc.Body)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(protected), &buf); err != nil {
		return theory.Rendered{}, fmt.Errorf("markdown: convert: %w", err)
	}

	out := restoreMath(buf.String(), math)
	out = strings.ReplaceAll(out, `\_`, "_")
	out = blockParaRe.ReplaceAllString(out, "$1")
	out = inlineParaRe.ReplaceAllString(out, "$1")
	out = r.replaceWikilinks(out)
	if r.sanitize != nil {
		out = r.sanitize.Sanitize(out)
	}

	return theory.Rendered{Title: doc.Title, Content: out}, nil
}

// protectMath swaps $$…$$ and $…$ spans for placeholders so the Markdown
// renderer leaves their contents alone.
func protectMath(src string) (string, []string) {
	var math []string
	keep := func(m string) string {
		math = append(math, m)
		return "@@MATH" + strconv.Itoa(len(math)-1) + "@@"
	}
	out := escapedDollarRe.ReplaceAllString(src, escapedDollar)
	out = mathBlockRe.ReplaceAllStringFunc(out, keep)
	out = mathInlineRe.ReplaceAllStringFunc(out, keep)
	return out, math
}

// restoreMath puts protected spans back, HTML-escaped so TeX operators such
// as < and & survive in the page.
func restoreMath(src string, math []string) string {
	out := placeholderRe.ReplaceAllStringFunc(src, func(m string) string {
		i, err := strconv.Atoi(placeholderRe.FindStringSubmatch(m)[1])
		if err != nil || i >= len(math) {
			return m
		}
		return html.EscapeString(math[i])
	})
	return strings.ReplaceAll(out, escapedDollar, "$")
}

// replaceWikilinks turns [[target|alias]] into links to the theory browser.
// Unresolved targets render as a marked span.
func (r *Renderer) replaceWikilinks(src string) string {
	return wikilinkRe.ReplaceAllStringFunc(src, func(m string) string {
		parts := wikilinkRe.FindStringSubmatch(m)
		target := strings.TrimSpace(parts[1])
		text := strings.TrimSpace(parts[2])
		if text == "" {
			text = target
		}
		if r.links != nil {
			if p, ok := r.links.Find(target); ok {
				return fmt.Sprintf(`<a href="%s" class="wikilink">%s</a>`, html.EscapeString(LinkTarget(p)), text)
			}
		}
		return fmt.Sprintf(`<span class="missing-link">%s</span>`, text)
	})
}

// LinkTarget returns the browser route of a vault-relative file path. The
// first path segment is the topic.
func LinkTarget(vaultPath string) string {
	topic, _, _ := strings.Cut(vaultPath, "/")
	return theory.NavTarget(topic, vaultPath)
}
