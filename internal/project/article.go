package project

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/checksum"
	"github.com/mk12/zendown/internal/resource"
	"github.com/mk12/zendown/internal/section"
	"github.com/mk12/zendown/internal/tree"
	"github.com/mk12/zendown/internal/zfm"
)

// IndexLabel is the reserved label of a directory's index article.
const IndexLabel tree.Label = "index"

// Article is a ZFM file in the content directory.
type Article struct {
	*resource.Lifecycle[*Project]

	node   *tree.Node[*Article]
	path   string
	logger *slog.Logger
	reads  int

	cfg      *ArticleConfig
	raw      []byte
	checksum string

	doc      *zfm.Document
	sections *tree.Tree[*section.Section]

	links    []Interlink
	assets   []*Asset
	includes []*Include
	targets  map[ast.Node]Target
}

// Target is what a link, image or include macro node resolved to. All fields
// are nil for external links and remote images.
type Target struct {
	Link    *Interlink
	Asset   *Asset
	Include *Include
	Err     error
}

func newArticle(node *tree.Node[*Article], path string, logger *slog.Logger) *Article {
	a := &Article{node: node, path: path}
	a.logger = logger.With(slog.String("article", path))
	a.Lifecycle = resource.New[*Project]("article", a.Ref().String, path, articleHooks{a}, logger)
	return a
}

// Ref returns the article's ref in the project's article tree.
func (a *Article) Ref() tree.Ref { return a.node.Ref() }

// Node returns the article's node in the project's article tree.
func (a *Article) Node() *tree.Node[*Article] { return a.node }

// Path returns the file the article is loaded from.
func (a *Article) Path() string { return a.path }

// IsIndex reports whether the article is its directory's index.
func (a *Article) IsIndex() bool { return a.node.Label() == IndexLabel }

// Reads returns how many times the article file was read from disk.
func (a *Article) Reads() int { return a.reads }

// Config returns the parsed header, loading the article if needed.
func (a *Article) Config() (*ArticleConfig, error) {
	if err := a.EnsureLoaded(); err != nil {
		return nil, err
	}
	return a.cfg, nil
}

// Title returns the article title, or the default title if it cannot load.
func (a *Article) Title() string {
	cfg, err := a.Config()
	if err != nil {
		a.logger.Error("failed to load article", slog.Any("error", err))
		return DefaultTitle
	}
	return cfg.Title
}

// Checksum returns the SHA-256 digest of the file as last loaded.
func (a *Article) Checksum() (string, error) {
	if err := a.EnsureLoaded(); err != nil {
		return "", err
	}
	return a.checksum, nil
}

// Doc returns the parsed body, parsing it if needed.
func (a *Article) Doc() (*zfm.Document, error) {
	if err := a.ensureParsed(); err != nil {
		return nil, err
	}
	return a.doc, nil
}

// Sections returns the section tree, parsing the body if needed.
func (a *Article) Sections() (*tree.Tree[*section.Section], error) {
	if err := a.ensureParsed(); err != nil {
		return nil, err
	}
	return a.sections, nil
}

func (a *Article) ensureParsed() error {
	if err := a.EnsureLoaded(); err != nil {
		return err
	}
	return a.EnsureParsed()
}

// Resolved brings the article to the Resolved stage against p.
func (a *Article) Resolved(p *Project) error {
	if err := a.ensureParsed(); err != nil {
		return err
	}
	return a.EnsureResolved(p)
}

// Links returns the interlinks found in the body, in document order.
func (a *Article) Links(p *Project) ([]Interlink, error) {
	if err := a.Resolved(p); err != nil {
		return nil, err
	}
	return a.links, nil
}

// Assets returns the assets referenced by images in the body.
func (a *Article) Assets(p *Project) ([]*Asset, error) {
	if err := a.Resolved(p); err != nil {
		return nil, err
	}
	return a.assets, nil
}

// Includes returns the includes referenced by include macros in the body.
func (a *Article) Includes(p *Project) ([]*Include, error) {
	if err := a.Resolved(p); err != nil {
		return nil, err
	}
	return a.includes, nil
}

// Target returns what n resolved to in the resolve stage. ok is false for
// nodes the stage never visited, such as those in include files.
func (a *Article) Target(n ast.Node) (t Target, ok bool) {
	t, ok = a.targets[n]
	return t, ok
}

type articleHooks struct{ a *Article }

func (h articleHooks) Load() error {
	a := h.a
	data, err := os.ReadFile(a.path)
	a.reads++
	switch {
	case errors.Is(err, fs.ErrNotExist):
		a.logger.Error("file disappeared")
		data = nil
	case err != nil:
		return err
	}
	stem := strings.TrimSuffix(filepath.Base(a.path), filepath.Ext(a.path))
	var header, body []byte
	if filepath.Ext(a.path) == ".yml" {
		header = data
	} else {
		header, body = splitHeader(data)
	}
	a.cfg = parseArticleConfig(header, zfm.Slugify(stem), a.logger)
	a.raw = body
	a.checksum = checksum.Sum(data)
	return nil
}

func (h articleHooks) Unload() {
	h.a.cfg = nil
	h.a.raw = nil
	h.a.checksum = ""
}

func (h articleHooks) Parse() error {
	a := h.a
	a.doc = zfm.Parse(a.raw)
	a.sections = section.Parse(a.doc.Blocks(), section.Anchors(a.doc.Source, a.logger, a.path))
	return nil
}

func (h articleHooks) Unparse() {
	h.a.doc = nil
	h.a.sections = nil
}

// Resolve resolves every link, image and include in the body. Failures are
// logged and recorded per node; they never fail the stage.
func (h articleHooks) Resolve(p *Project) error {
	a := h.a
	a.targets = make(map[ast.Node]Target)
	return ast.Walk(a.doc.Root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Link, *ast.Image:
		case *zfm.BlockMacro:
			if n.Name != IncludeMacro {
				return ast.WalkContinue, nil
			}
		default:
			return ast.WalkContinue, nil
		}
		t := p.ResolveNode(a, n)
		a.targets[n] = t
		switch {
		case t.Err != nil:
			a.logger.Error("failed to resolve", slog.Any("error", t.Err))
		case t.Link != nil:
			a.links = append(a.links, *t.Link)
		case t.Asset != nil:
			a.assets = append(a.assets, t.Asset)
		case t.Include != nil:
			a.includes = append(a.includes, t.Include)
		}
		return ast.WalkContinue, nil
	})
}

func (h articleHooks) Unresolve() {
	h.a.links = nil
	h.a.assets = nil
	h.a.includes = nil
	h.a.targets = nil
}
