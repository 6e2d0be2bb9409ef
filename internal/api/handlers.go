package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mk12/zendown/internal/apperr"
	"github.com/mk12/zendown/internal/build"
	"github.com/mk12/zendown/internal/site"
)

// Handler holds API route handlers.
type Handler struct {
	svc *site.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *site.Service) *Handler {
	return &Handler{svc: svc}
}

// articleRef extracts the article ref from the URL (everything after the
// route prefix), e.g. /api/articles/guide/install → "/guide/install".
// Supports encoded slashes (e.g. guide%2Finstall).
func articleRef(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		decoded = raw
	}
	return "/" + decoded
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrInvalidReference),
		errors.Is(err, apperr.ErrAmbiguousReference),
		errors.Is(err, apperr.ErrInvalidAnchor),
		errors.Is(err, build.ErrUnknownTarget):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, site.ErrNoIndex):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListArticles handles GET /api/articles.
//
//	@Summary		List articles in discovery order
//	@Tags			articles
//	@Produce		json
//	@Success		200		{object}	ArticleListResponse
//	@Security		BearerAuth
//	@Router			/articles [get]
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListArticles(r.Context())
	if err != nil {
		writeError(w, "list articles", err)
		return
	}
	writeJSON(w, http.StatusOK, ArticleListResponse{Articles: items, Total: len(items)})
}

// GetArticle handles GET /api/articles/*.
//
//	@Summary		Get a single article by ref
//	@Tags			articles
//	@Produce		json
//	@Param			ref	path		string	true	"Article ref"
//	@Success		200		{object}	ArticleDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/articles/{ref} [get]
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	ref := articleRef(r)
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("ref is required"))
		return
	}
	article, err := h.svc.GetArticle(r.Context(), ref)
	if err != nil {
		writeError(w, "get article", err)
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// RenderArticle handles GET /api/render/*.
//
//	@Summary		Render an article body to HTML
//	@Tags			articles
//	@Produce		html
//	@Param			ref		path	string	true	"Article ref"
//	@Param			target	query	string	false	"Build target"	Enums(html, page, links)
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render/{ref} [get]
func (h *Handler) RenderArticle(w http.ResponseWriter, r *http.Request) {
	ref := articleRef(r)
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("ref is required"))
		return
	}
	out, err := h.svc.RenderArticle(r.Context(), ref, r.URL.Query().Get("target"))
	if err != nil {
		writeError(w, "render article", err)
		return
	}
	writeHTML(w, out)
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a link destination
//	@Tags			articles
//	@Produce		json
//	@Param			url		query		string	true	"Link destination"
//	@Param			from	query		string	false	"Ref of the article containing the link"
//	@Success		200		{object}	Reference
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dest := q.Get("url")
	if dest == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'url' is required"))
		return
	}
	ref, err := h.svc.ResolveReference(r.Context(), q.Get("from"), dest)
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, ref)
}

// Backlinks handles GET /api/backlinks/*.
//
//	@Summary		List the links pointing at an article
//	@Tags			articles
//	@Produce		json
//	@Param			ref	path		string	true	"Article ref"
//	@Success		200		{object}	BacklinksResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backlinks/{ref} [get]
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	ref := articleRef(r)
	if ref == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("ref is required"))
		return
	}
	back, err := h.svc.Backlinks(r.Context(), ref)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, BacklinksResponse{Ref: ref, Backlinks: back})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across articles
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	out := make([]SearchResult, len(results))
	for i, res := range results {
		out[i] = SearchResult{Ref: res.Ref, Title: res.Title, Snippet: res.Snippet}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: out})
}
