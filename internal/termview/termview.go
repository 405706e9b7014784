// Package termview prints a browsing session to a terminal: a styled
// navigation tree followed by the selected document.
package termview

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/theoria/internal/browser"
	"github.com/starford/theoria/internal/theory"
	"github.com/starford/theoria/internal/web"
)

type styles struct {
	Title  lipgloss.Style
	Banner lipgloss.Style
	Header lipgloss.Style
	Link   lipgloss.Style
	Active lipgloss.Style
	Muted  lipgloss.Style
	Error  lipgloss.Style
}

func newStyles() styles {
	return styles{
		Title: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7c3aed")).
			Bold(true),
		Banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#b45309")).
			Italic(true),
		Header: lipgloss.NewStyle().
			Bold(true),
		Link: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280")),
		Active: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2563eb")).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280")).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#dc2626")),
	}
}

// Printer renders views. It is not safe for concurrent use.
type Printer struct {
	conv   *md.Converter
	style  string
	wrap   int
	glam   *glamour.TermRenderer
	styles styles
}

// Option configures a Printer.
type Option func(*Printer)

// WithStyle selects a glamour style by name ("dark", "light", "notty", ...).
// The default picks one from the terminal background.
func WithStyle(name string) Option {
	return func(p *Printer) { p.style = name }
}

// WithWordWrap sets the content wrap width.
func WithWordWrap(n int) Option {
	return func(p *Printer) { p.wrap = n }
}

// New creates a Printer.
func New(opts ...Option) (*Printer, error) {
	p := &Printer{wrap: 80, styles: newStyles()}
	for _, opt := range opts {
		opt(p)
	}

	p.conv = md.NewConverter("", true, nil)
	p.conv.Use(plugin.GitHubFlavored())

	styleOpt := glamour.WithAutoStyle()
	if p.style != "" {
		styleOpt = glamour.WithStylePath(p.style)
	}
	glam, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(p.wrap))
	if err != nil {
		return nil, fmt.Errorf("termview: glamour: %w", err)
	}
	p.glam = glam
	return p, nil
}

// Print writes the page for topic: heading, fallback banner, navigation and
// the selected content, error or hint.
func (p *Printer) Print(w io.Writer, topic string, v browser.View) error {
	var b strings.Builder

	b.WriteString(p.styles.Title.Render(web.PageTitle(topic)))
	b.WriteString("\n")
	if v.UsingFallback() {
		b.WriteString(p.styles.Banner.Render(web.DemoBanner))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if cat := v.Structure.Topic(topic); !cat.Empty() {
		for e := range browser.RenderNav(topic, cat, v.Path, 0) {
			b.WriteString(p.navLine(e))
			b.WriteString("\n")
		}
	} else {
		b.WriteString(p.styles.Muted.Render(web.NoContent))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch v.State {
	case browser.StateContentReady:
		out, err := p.Content(v.Content)
		if err != nil {
			return err
		}
		b.WriteString(out)
	case browser.StateContentNotFound:
		b.WriteString(p.styles.Error.Render(v.Err.Error()))
		b.WriteString("\n")
	default:
		b.WriteString(p.styles.Muted.Render(web.SelectHint))
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (p *Printer) navLine(e browser.NavEntry) string {
	indent := strings.Repeat("  ", e.Depth)
	switch {
	case e.Kind == browser.KindHeader:
		return indent + p.styles.Header.Render(e.Label+"/")
	case e.Active:
		return indent + "> " + p.styles.Active.Render(e.Label)
	default:
		return indent + "  " + p.styles.Link.Render(e.Label)
	}
}

// Content converts the rendered HTML back to Markdown and formats it for
// the terminal.
func (p *Printer) Content(c theory.Rendered) (string, error) {
	body, err := p.conv.ConvertString(c.Content)
	if err != nil {
		return "", fmt.Errorf("termview: convert: %w", err)
	}
	doc := "# " + c.Title + "\n\n" + body
	out, err := p.glam.Render(doc)
	if err != nil {
		return "", fmt.Errorf("termview: render: %w", err)
	}
	return out, nil
}
