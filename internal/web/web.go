// Package web renders the theory browser as server-side HTML pages.
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/theoria/internal/browser"
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/theory"
	"github.com/starford/theoria/internal/theoryservice"
)

// Messages shown on the pages.
const (
	DemoBanner = "Showing demo content. Backend connection unavailable."
	NoContent  = "No content available"
	SelectHint = "Select a topic from the sidebar to view its content."
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ViewRecorder stores a content view. *theoryservice.Service satisfies it.
type ViewRecorder interface {
	RecordView(ctx context.Context, req theoryservice.ViewRequest) error
}

// Handler serves /theory pages. Every request runs its own browsing
// session: one structure resolution and at most one content fetch.
type Handler struct {
	resolver *browser.Resolver
	tmpl     *template.Template
	views    ViewRecorder
	logger   *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithViewRecorder records a view for every page that shows content.
func WithViewRecorder(v ViewRecorder) Option {
	return func(h *Handler) { h.views = v }
}

// WithLogger sets the handler's logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// New parses the embedded templates.
func New(r *browser.Resolver, opts ...Option) (*Handler, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	h := &Handler{resolver: r, tmpl: tmpl, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"demoBanner": func() string { return DemoBanner },
		"noContent":  func() string { return NoContent },
		"selectHint": func() string { return SelectHint },
		"isHeader":   func(e browser.NavEntry) bool { return e.Kind == browser.KindHeader },
		"indent":     indent,
	}
	return template.New("_root").Funcs(funcMap).ParseFS(templateFS, "templates/*.tmpl")
}

// indent returns the left padding of a nav entry in rem. Links sit one
// step right of the headers at the same depth.
func indent(e browser.NavEntry) float64 {
	pad := float64(e.Depth) * 0.5
	if e.Kind == browser.KindLink {
		pad += 0.5
	}
	return pad
}

// Routes registers the pages on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/theory", h.Index)
	r.Get("/theory/{topic}", h.Topic)
	r.Get("/theory/{topic}/*", h.Topic)
}

type topicLink struct {
	ID          string
	Title       string
	Description string
	Href        string
}

type pageData struct {
	Page    string
	Title   string
	Demo    bool
	Topics  []topicLink
	Nav     []browser.NavEntry
	Content *theory.Rendered
	Body    template.HTML
	Error   string
}

// Index handles GET /theory.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	sess := browser.NewSession(h.resolver)
	res := sess.Load(r.Context())

	data := pageData{Page: "index", Title: "Theory", Demo: res.UsingFallback()}
	for _, id := range res.Structure.Keys() {
		info, _ := topicInfo(id)
		data.Topics = append(data.Topics, topicLink{
			ID:          id,
			Title:       info.Title,
			Description: info.Description,
			Href:        "/theory/" + id,
		})
	}
	h.render(w, http.StatusOK, data)
}

// Topic handles GET /theory/{topic} and GET /theory/{topic}/{path}.
func (h *Handler) Topic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	topic := chi.URLParam(r, "topic")
	path := strings.Trim(chi.URLParam(r, "*"), "/")

	sess := browser.NewSession(h.resolver)
	res := sess.Load(ctx)

	data := pageData{Page: "topic", Title: PageTitle(topic), Demo: res.UsingFallback()}
	if cat := sess.Topic(topic); !cat.Empty() {
		data.Nav = slices.Collect(browser.RenderNav(topic, cat, path, 0))
	}

	status := http.StatusOK
	if path != "" {
		sess.Select(ctx, path)
		sess.Wait()
		v := sess.Snapshot()
		switch v.State {
		case browser.StateContentReady:
			c := v.Content
			data.Content = &c
			// Content comes from the operator's vault or the demo table and is
			// inserted without sanitizing.
			data.Body = template.HTML(c.Content) //nolint:gosec // trusted content
			h.recordView(ctx, path, c.Title)
		case browser.StateContentNotFound:
			data.Error = v.Err.Error()
			status = http.StatusNotFound
		}
	}
	h.render(w, status, data)
}

func (h *Handler) recordView(ctx context.Context, path, title string) {
	if h.views == nil {
		return
	}
	err := h.views.RecordView(ctx, theoryservice.ViewRequest{
		ContentID:    path,
		ContentType:  index.ContentTypeTheory,
		ContentTitle: title,
	})
	if err != nil {
		h.logger.Warn("web: record view failed", slog.String("path", path), slog.String("error", err.Error()))
	}
}

func (h *Handler) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("web: template exec failed", slog.String("error", err.Error()))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
