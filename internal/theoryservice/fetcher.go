package theoryservice

import (
	"context"

	"github.com/starford/theoria/internal/theory"
)

// Fetcher lets the browser read from the service in-process instead of
// going through HTTP.
type Fetcher struct {
	svc *Service
}

// NewFetcher wraps svc.
func NewFetcher(svc *Service) *Fetcher {
	return &Fetcher{svc: svc}
}

// Structure returns the catalog tree. It never fails.
func (f *Fetcher) Structure(ctx context.Context) (*theory.Structure, error) {
	return f.svc.Structure(ctx), nil
}

// Content renders the document at path.
func (f *Fetcher) Content(ctx context.Context, path string) (theory.Rendered, error) {
	return f.svc.Content(ctx, path)
}
