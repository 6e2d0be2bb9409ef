package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mk12/zendown/internal/site"
)

// NewRouter creates a chi router with all API routes mounted.
// A non-empty token enforces Bearer token auth.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *site.Service, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(token != "", token))

	// Articles.
	r.Get("/articles", h.ListArticles)
	r.Get("/articles/*", h.GetArticle)

	// On-demand rendering and lookups.
	r.Get("/render/*", h.RenderArticle)
	r.Get("/resolve", h.Resolve)
	r.Get("/backlinks/*", h.Backlinks)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
