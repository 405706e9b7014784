// Package theoryservice serves the theory tree and rendered content from the
// vault, and records content views.
package theoryservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/theoria/internal/apperr"
	"github.com/starford/theoria/internal/catalog"
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/markdown"
	"github.com/starford/theoria/internal/storage"
	"github.com/starford/theoria/internal/theory"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

// ViewRequest is a content view reported by a browser.
type ViewRequest struct {
	ContentID    string `json:"content_id"`
	ContentType  string `json:"content_type"`
	ContentTitle string `json:"content_title"`
	UserID       string `json:"user_id,omitempty"`
}

// Validate checks the request fields.
func (r ViewRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ContentID, validation.Required, validation.Length(1, 512)),
		validation.Field(&r.ContentType, validation.Required, validation.In(index.ContentTypeTheory, index.ContentTypeExercise)),
		validation.Field(&r.ContentTitle, validation.Required, validation.Length(1, 512)),
	)
}

// Topic summarises one top-level category.
type Topic struct {
	ID        string `json:"id"`
	Documents int    `json:"documents"`
}

// ViewCounter is notified after a view is stored.
type ViewCounter interface {
	ViewRecorded()
}

// Service coordinates the vault, catalog, renderer and index.
type Service struct {
	store    storage.Provider
	catalog  *catalog.Catalog
	renderer *markdown.Renderer
	db       index.Index
	counter  ViewCounter
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithViewCounter reports stored views to c.
func WithViewCounter(c ViewCounter) Option {
	return func(s *Service) { s.counter = c }
}

// WithClock overrides time.Now for stats windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the service.
func NewService(store storage.Provider, cat *catalog.Catalog, r *markdown.Renderer, db index.Index, opts ...Option) *Service {
	s := &Service{
		store:    store,
		catalog:  cat,
		renderer: r,
		db:       db,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Structure returns the current topic tree.
func (s *Service) Structure(_ context.Context) *theory.Structure {
	return s.catalog.Structure()
}

// Topics lists topic ids with their document counts, in tree order.
func (s *Service) Topics(_ context.Context) []Topic {
	st := s.catalog.Structure()
	out := make([]Topic, 0, len(st.Order))
	for _, id := range st.Keys() {
		out = append(out, Topic{ID: id, Documents: countFiles(st.Topic(id))})
	}
	return out
}

func countFiles(c *theory.Category) int {
	if c == nil {
		return 0
	}
	n := len(c.Files)
	for _, sub := range c.Subcategories {
		n += countFiles(sub)
	}
	return n
}

// Content renders the document at contentPath. The path may carry the .md
// suffix or not. Only documents in the current tree are served, so ignored
// and root-level files are not found.
func (s *Service) Content(_ context.Context, contentPath string) (theory.Rendered, error) {
	rel, err := vaultPath(contentPath)
	if err != nil {
		return theory.Rendered{}, err
	}
	if !s.catalog.Has(rel) {
		return theory.Rendered{}, apperr.ErrNotFound
	}
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return theory.Rendered{}, apperr.ErrNotFound
		}
		return theory.Rendered{}, fmt.Errorf("theoryservice: read %s: %w", rel, err)
	}
	out, err := s.renderer.Render(data)
	if err != nil {
		return theory.Rendered{}, fmt.Errorf("theoryservice: render %s: %w", rel, err)
	}
	return out, nil
}

// vaultPath maps a content path to the vault-relative Markdown file.
func vaultPath(contentPath string) (string, error) {
	p := strings.Trim(contentPath, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty content path", apperr.ErrInvalid)
	}
	clean := path.Clean(p)
	if clean != p || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", apperr.ErrNotFound
	}
	return theory.StripExt(clean) + ".md", nil
}

// Search runs a full-text query. limit is clamped to a sane range.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", apperr.ErrInvalid)
	}
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, fmt.Errorf("theoryservice: search: %w", err)
	}
	if res == nil {
		res = []index.SearchResult{}
	}
	return res, nil
}

// RecordView validates and stores one view.
func (s *Service) RecordView(_ context.Context, req ViewRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrInvalid, err)
	}
	err := s.db.RecordView(index.View{
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Title:       req.ContentTitle,
		UserID:      req.UserID,
		ViewedAt:    s.now(),
	})
	if err != nil {
		return fmt.Errorf("theoryservice: %w", err)
	}
	if s.counter != nil {
		s.counter.ViewRecorded()
	}
	return nil
}

// Stats aggregates recorded views over the documents in the catalog.
func (s *Service) Stats(_ context.Context) (*index.Stats, error) {
	st, err := s.db.ViewStats(s.now(), s.catalog.Len())
	if err != nil {
		return nil, fmt.Errorf("theoryservice: stats: %w", err)
	}
	return st, nil
}
