package api

import (
	"context"

	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/theory"
	"github.com/starford/theoria/internal/theoryservice"
)

// Service is the domain layer behind the handlers. *theoryservice.Service
// implements it.
type Service interface {
	Structure(ctx context.Context) *theory.Structure
	Content(ctx context.Context, path string) (theory.Rendered, error)
	Search(ctx context.Context, query string, limit int) ([]index.SearchResult, error)
	RecordView(ctx context.Context, req theoryservice.ViewRequest) error
	Stats(ctx context.Context) (*index.Stats, error)
}

var _ Service = (*theoryservice.Service)(nil)
