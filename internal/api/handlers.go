package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/theoria/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// contentPath extracts the content path from the URL (everything after
// /theory/content/). Encoded slashes are accepted. chi matches on RawPath
// when the request has one, and only then is the parameter still escaped.
func contentPath(r *http.Request) string {
	p := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if p == "" || r.URL.RawPath == "" {
		return p
	}
	decoded, err := url.PathUnescape(p)
	if err != nil {
		return p
	}
	return decoded
}

// Structure handles GET /theory/structure.
//
//	@Summary		Get the full topic tree
//	@Tags			theory
//	@Produce		json
//	@Success		200	{object}	map[string]theory.Category
//	@Router			/theory/structure [get]
func (h *Handler) Structure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Structure(r.Context()))
}

// Content handles GET /theory/content/*.
//
//	@Summary		Get rendered content by path
//	@Tags			theory
//	@Produce		json
//	@Param			path	path		string	true	"Content path, with or without .md"
//	@Success		200		{object}	ContentResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Router			/theory/content/{path} [get]
func (h *Handler) Content(w http.ResponseWriter, r *http.Request) {
	path := contentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	c, err := h.svc.Content(r.Context(), path)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Content not found"))
		case errors.Is(err, apperr.ErrInvalid):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			slog.Error("content failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across theory content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/api/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// RecordView handles POST /api/content/view.
//
//	@Summary		Record a content view
//	@Tags			views
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ViewRequest	true	"Viewed content"
//	@Success		201		{object}	ViewResponse
//	@Failure		400		{object}	errResponse
//	@Router			/api/content/view [post]
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := readJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.svc.RecordView(r.Context(), req); err != nil {
		if errors.Is(err, apperr.ErrInvalid) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		slog.Error("record view failed", slog.String("content_id", req.ContentID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, ViewResponse{Message: "View recorded successfully"})
}

// Stats handles GET /api/admin/stats.
//
//	@Summary		Content view statistics
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Failure		401	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/api/admin/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}
