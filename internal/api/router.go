package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes. It is meant to be
// mounted at "/" because the theory endpoints live under /theory and the
// rest under /api.
//
// The theory endpoints are public. With authEnabled, /api/admin requires
// the Bearer token. events, if non-nil, is served at GET /api/events.
func NewRouter(svc Service, authEnabled bool, token string, events http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(vaultRoot)

	r := chi.NewRouter()

	r.Get("/theory/structure", h.Structure)
	r.Get("/theory/content/*", h.Content)
	r.Get("/theory/attachments/{filename}", ah.ServeFile)

	r.Route("/api", func(r chi.Router) {
		r.Get("/search", h.Search)
		r.Post("/content/view", h.RecordView)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(authEnabled, token))
			r.Get("/admin/stats", h.Stats)
		})

		if events != nil {
			r.Get("/events", events.ServeHTTP)
		}
	})

	return r
}
