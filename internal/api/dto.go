package api

import (
	"github.com/mk12/zendown/internal/index"
	"github.com/mk12/zendown/internal/site"
)

// ArticleSummary is a lightweight item in a list response (aliased from the domain layer).
type ArticleSummary = site.ArticleSummary

// ArticleDetail is the full article response type (aliased from the domain layer).
type ArticleDetail = site.ArticleDetail

// Reference is the resolve response type (aliased from the domain layer).
type Reference = site.Reference

// ArticleListResponse wraps article listings.
type ArticleListResponse struct {
	Articles []ArticleSummary `json:"articles" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// BacklinksResponse wraps the links pointing at an article.
type BacklinksResponse struct {
	Ref       string       `json:"ref" example:"/guide/install" validate:"required"`
	Backlinks []index.Link `json:"backlinks" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Ref     string `json:"ref" example:"/guide/install" validate:"required"`
	Title   string `json:"title" example:"Install" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
