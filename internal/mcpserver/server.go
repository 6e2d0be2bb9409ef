// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Zendown project tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mk12/zendown/internal/site"
)

// FormatURI is the resource URI of the article format contract.
const FormatURI = "zendown://article-format"

// Server wraps the MCP server with Zendown tools.
type Server struct {
	mcp *server.MCPServer
	svc *site.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *site.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Zendown",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List all articles with their refs, titles, and tags."),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("get_article",
		mcp.WithDescription("Get an article's header fields, section anchors, outgoing links, and backlinks."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Full ref (/guide/install) or unique label (install)")),
	), s.getArticle)

	s.mcp.AddTool(mcp.NewTool("render_article",
		mcp.WithDescription("Render an article body to HTML as a build target would."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Full ref or unique label")),
		mcp.WithString("target", mcp.Description("Build target: html (default), page, or links")),
	), s.renderArticle)

	s.mcp.AddTool(mcp.NewTool("resolve_reference",
		mcp.WithDescription("Resolve a link destination the way the renderer would. "+
			"Reports the target ref and section, or the resolution error."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Link destination, e.g. install#setup")),
		mcp.WithString("from", mcp.Description("Ref of the article containing the link (needed for #anchor links)")),
	), s.resolveReference)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all articles that link to the specified article."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Full ref or unique label")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Full-text search through article titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("get_article_format",
		mcp.WithDescription("Returns the article format reference: header fields, link syntax, and macros. "+
			"Call this before suggesting article edits."),
	), s.getArticleFormat)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Article Format",
			mcp.WithResourceDescription("Header, link, and macro syntax of Zendown articles."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listArticles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.ListArticles(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) getArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	d, err := s.svc.GetArticle(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(d)
}

func (s *Server) renderArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.RenderArticle(ctx, ref, optionalString(req, "target"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) resolveReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ref, err := s.svc.ResolveReference(ctx, optionalString(req, "from"), url)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ref)
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.svc.Backlinks(ctx, ref)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	lines := make([]string, len(bl))
	for i, l := range bl {
		lines[i] = l.Source + " -> " + l.Target
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getArticleFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
