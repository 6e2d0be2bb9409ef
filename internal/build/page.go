package build

import (
	"context"
	"fmt"
	"html"
	"html/template"
	"log/slog"
	"sort"
	"strings"

	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/render"
	"github.com/mk12/zendown/internal/storage"
)

// PageFile is where the page target writes unless Options.Stdout is set.
const PageFile = "index.html"

// Page concatenates every article into one HTML document. Each article
// becomes a section headed by its title, with its own headings shifted down
// a level.
type Page struct{}

// NewPage returns the page target.
func NewPage() *Page { return &Page{} }

func (*Page) Name() string        { return "page" }
func (*Page) Description() string { return "single-page export in out/page (or stdout)" }

// slug returns the section id of a within the page.
func slug(a *project.Article) string {
	if cfg, err := a.Config(); err == nil && cfg.Slug != "" {
		return cfg.Slug
	}
	return string(a.Ref().Last())
}

// scopedAnchor is the page id of anchor in a. Heading anchors are only
// unique within one article, so they are prefixed with its slug.
func scopedAnchor(a *project.Article, anchor string) string {
	return slug(a) + "--" + anchor
}

func (*Page) ResolveLink(from *project.Article, link project.Interlink) (string, error) {
	target := link.Article
	if link.Self || target == nil {
		target = from
	}
	if link.Anchor != "" {
		return "#" + scopedAnchor(target, string(link.Anchor)), nil
	}
	return "#" + slug(target), nil
}

// adjustOptions shifts headings under the article title and scopes ids.
func (*Page) adjustOptions(o *render.Options) {
	o.HeadingShift = 1
	o.ScopeAnchor = scopedAnchor
}

func (*Page) ResolveAsset(_ *project.Article, asset *project.Asset) (string, error) {
	return AssetPath(asset), nil
}

// ordered returns the articles sorted by their order key, keeping discovery
// order among equals.
func ordered(p *project.Project) []*project.Article {
	articles := append([]*project.Article(nil), p.Articles()...)
	order := func(a *project.Article) int {
		if cfg, err := a.Config(); err == nil {
			return cfg.Order
		}
		return 0
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return order(articles[i]) < order(articles[j])
	})
	return articles
}

func (pg *Page) Build(ctx context.Context, env *Env) (Result, error) {
	var res Result
	p := env.Project
	logger := env.logger()

	r := env.Renderer(pg, RenderOptions(pg, p))

	var body strings.Builder
	for _, a := range ordered(p) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, err := r.Article(a)
		if err != nil {
			env.errors.Add(1)
			logger.Error("build: render failed", slog.String("article", a.Path()), slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintf(&body, "<section id=\"%s\">\n<h1>%s</h1>\n%s</section>\n",
			html.EscapeString(slug(a)), html.EscapeString(a.Title()), out)
		res.Articles++
		env.recorder().IncArticlesRendered(pg.Name())
	}

	doc, err := renderLayout(pageData{
		Project:    p.Name(),
		Body:       template.HTML(body.String()),
		LiveReload: env.Options.LiveReload,
	})
	if err != nil {
		return res, fmt.Errorf("layout: %w", err)
	}

	if env.Options.Stdout {
		if _, err := env.Stdout.Write(doc); err != nil {
			return res, err
		}
		res.Written = 1
		return res, nil
	}

	out, err := storage.NewFS(p.OutputDir(pg.Name()))
	if err != nil {
		return res, err
	}
	keep := map[string]bool{PageFile: true}
	changed, err := out.Write(PageFile, doc)
	if err != nil {
		return res, err
	}
	if changed {
		res.Written++
	}
	res.Written += copyAssets(env, out, keep)
	res.Removed, err = prune(out, keep, logger)
	return res, err
}
