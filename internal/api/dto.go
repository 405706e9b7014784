package api

import (
	"github.com/starford/theoria/internal/index"
	"github.com/starford/theoria/internal/theory"
	"github.com/starford/theoria/internal/theoryservice"
)

// ContentResponse is the body of GET /theory/content/{path}.
type ContentResponse = theory.Rendered

// ViewRequest is the body of POST /api/content/view.
type ViewRequest = theoryservice.ViewRequest

// ViewResponse acknowledges a recorded view.
type ViewResponse struct {
	Message string `json:"message" example:"View recorded successfully" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// StatsResponse is the body of GET /api/admin/stats.
type StatsResponse = index.Stats
