package build

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"path"
	"strings"

	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/storage"
)

// HTML writes one page per article under out/html, mirroring the article
// tree, with assets copied to out/html/assets.
type HTML struct{}

// NewHTML returns the html target.
func NewHTML() *HTML { return &HTML{} }

func (*HTML) Name() string        { return "html" }
func (*HTML) Description() string { return "static HTML site in out/html" }

// ArticlePath returns the output path of a, e.g. "guide/install.html". A
// directory's index article lands on "<dir>/index.html".
func ArticlePath(a *project.Article) string {
	return strings.TrimPrefix(a.Ref().String(), "/") + ".html"
}

// AssetPath returns the output path of an asset.
func AssetPath(a *project.Asset) string {
	return "assets" + a.Ref().String()
}

// relativeTo returns target, a path from the output root, as seen from the
// page of from.
func relativeTo(from *project.Article, target string) string {
	if from == nil {
		return target
	}
	depth := from.Ref().Len() - 1
	if depth < 0 {
		depth = 0
	}
	return strings.Repeat("../", depth) + target
}

func (*HTML) ResolveLink(from *project.Article, link project.Interlink) (string, error) {
	if link.Self || link.Article == from {
		if link.Anchor != "" {
			return "#" + string(link.Anchor), nil
		}
		return path.Base(ArticlePath(from)), nil
	}
	u := relativeTo(from, ArticlePath(link.Article))
	if link.Anchor != "" {
		u += "#" + string(link.Anchor)
	}
	return u, nil
}

func (*HTML) ResolveAsset(from *project.Article, asset *project.Asset) (string, error) {
	return relativeTo(from, AssetPath(asset)), nil
}

func (h *HTML) Build(ctx context.Context, env *Env) (Result, error) {
	var res Result
	p := env.Project
	logger := env.logger()

	out, err := storage.NewFS(p.OutputDir(h.Name()))
	if err != nil {
		return res, err
	}
	r := env.Renderer(h, RenderOptions(h, p))
	keep := make(map[string]bool)

	for _, a := range p.Articles() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		body, err := r.Article(a)
		if err != nil {
			env.errors.Add(1)
			logger.Error("build: render failed", slog.String("article", a.Path()), slog.String("error", err.Error()))
			continue
		}
		var subtitle string
		if cfg, err := a.Config(); err == nil {
			subtitle = cfg.Subtitle
		}
		page, err := renderLayout(pageData{
			Project:    p.Name(),
			Title:      a.Title(),
			Subtitle:   subtitle,
			Body:       template.HTML(body),
			LiveReload: env.Options.LiveReload,
		})
		if err != nil {
			return res, fmt.Errorf("layout %s: %w", a.Ref(), err)
		}
		dst := ArticlePath(a)
		changed, err := out.Write(dst, page)
		if err != nil {
			return res, err
		}
		keep[dst] = true
		res.Articles++
		env.recorder().IncArticlesRendered(h.Name())
		if changed {
			res.Written++
			logger.Debug("build: wrote", slog.String("path", dst))
		}
	}

	// Assets are known only once every article has resolved.
	res.Written += copyAssets(env, out, keep)

	res.Removed, err = prune(out, keep, logger)
	return res, err
}

// copyAssets copies every resolved asset into out and returns how many
// files changed. A failed copy is logged and counted as a build error.
func copyAssets(env *Env, out storage.Provider, keep map[string]bool) int {
	logger := env.logger()
	written := 0
	for _, asset := range env.Project.Assets() {
		dst := AssetPath(asset)
		changed, err := out.Copy(asset.Path(), dst)
		if err != nil {
			env.errors.Add(1)
			logger.Error("build: copy asset failed",
				slog.String("asset", asset.Ref().String()),
				slog.String("error", err.Error()))
			continue
		}
		keep[dst] = true
		if changed {
			written++
		}
	}
	return written
}

// prune deletes every file in out that the build did not produce.
func prune(out storage.Provider, keep map[string]bool, logger *slog.Logger) (int, error) {
	entries, err := out.List("")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if keep[e.Path] {
			continue
		}
		if err := out.Delete(e.Path); err != nil {
			return removed, err
		}
		removed++
		logger.Debug("build: removed stale", slog.String("path", e.Path))
	}
	return removed, nil
}
