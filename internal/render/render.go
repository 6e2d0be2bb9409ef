// Package render turns parsed ZFM documents into HTML.
package render

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/mk12/zendown/internal/macro"
	"github.com/mk12/zendown/internal/metrics"
	"github.com/mk12/zendown/internal/project"
)

// Options control how documents are rendered.
type Options struct {
	// HeadingShift is added to every heading level. Results are clamped to
	// the range 1 to 6.
	HeadingShift int
	// NoImages drops images from the output.
	NoImages bool
	// SmartTypography enables curly quotes, ellipses and em dashes.
	SmartTypography bool
	// ImageLinks wraps each image in a link to its own source.
	ImageLinks bool
	// InlineCodeMacro, if set, names an inline macro that renders code spans
	// in place of <code>.
	InlineCodeMacro string
	// ScopeAnchor, if set, rewrites the heading ids of an article. Targets
	// that put several articles in one document use it to keep ids unique.
	ScopeAnchor func(a *project.Article, anchor string) string
}

// OptionsFor returns the options set by a project config.
func OptionsFor(cfg *project.Config) Options {
	return Options{
		SmartTypography: cfg.SmartTypography,
		ImageLinks:      cfg.ImageLinks,
		InlineCodeMacro: cfg.InlineCodeMacro,
	}
}

// Renderer renders the articles of one project for one builder.
type Renderer struct {
	project  *project.Project
	builder  project.Builder
	macros   *macro.Registry
	opts     Options
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithRecorder reports error markers to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Renderer) { r.recorder = rec }
}

// WithLogger sets the logger for render-time errors.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// New returns a renderer. macros is usually macro.ForProject(p).
func New(p *project.Project, b project.Builder, macros *macro.Registry, opts Options, options ...Option) *Renderer {
	r := &Renderer{
		project:  p,
		builder:  b,
		macros:   macros,
		opts:     opts,
		recorder: metrics.NoopRecorder{},
		logger:   p.Logger(),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Options returns the renderer's options.
func (r *Renderer) Options() Options { return r.opts }

// Article renders the body of a, resolving it first if needed.
func (r *Renderer) Article(a *project.Article) (string, error) {
	if err := a.Resolved(r.project); err != nil {
		return "", err
	}
	doc, err := a.Doc()
	if err != nil {
		return "", err
	}
	ctx := &macro.Context{
		Project:  r.project,
		Article:  a,
		Builder:  r.builder,
		Renderer: r,
		Source:   doc.Source,
	}
	return r.Render(ctx, doc.Source, doc.Blocks())
}

// Render renders nodes whose segments refer to source.
func (r *Renderer) Render(ctx *macro.Context, source []byte, nodes []ast.Node) (string, error) {
	nr := &nodeRenderer{r: r, ctx: ctx, marked: make(map[ast.Node]bool)}
	gr := renderer.NewRenderer(renderer.WithNodeRenderers(
		util.Prioritized(html.NewRenderer(html.WithUnsafe()), 1000),
		util.Prioritized(nr, 100),
	))
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := gr.Render(&buf, source, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
