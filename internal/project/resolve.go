package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/apperr"
	"github.com/mk12/zendown/internal/section"
	"github.com/mk12/zendown/internal/tree"
	"github.com/mk12/zendown/internal/zfm"
)

// ResolveError reports a reference that does not name exactly one target.
type ResolveError struct {
	// Kind is what was being resolved: "link", "asset" or "include".
	Kind   string
	Target string
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Target)
}

func (e *ResolveError) Unwrap() error { return e.Err }

var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// IsExternal reports whether a link destination points outside the project.
// Anything containing a dot is external, as is anything with a URI scheme.
func IsExternal(url string) bool {
	return strings.Contains(url, ".") || schemeRe.MatchString(url)
}

// IsRemote reports whether an image source is fetched from elsewhere rather
// than the assets directory.
func IsRemote(url string) bool {
	return schemeRe.MatchString(url) || strings.HasPrefix(url, "//")
}

// ResolveLink resolves a link destination written in from. It returns nil
// without error for external links.
func (p *Project) ResolveLink(from *Article, url string) (*Interlink, error) {
	if IsExternal(url) {
		return nil, nil
	}
	path, anchor, _ := strings.Cut(url, "#")
	fail := func(err error, target string) error {
		return &ResolveError{Kind: "link", Target: target, Err: err}
	}
	link := &Interlink{Anchor: section.Anchor(anchor)}
	switch {
	case path == "":
		link.Article = from
		link.Self = true
	case strings.HasPrefix(path, "/"):
		ref, err := tree.ParseRef(path)
		if err != nil {
			return nil, fail(apperr.ErrInvalidReference, path)
		}
		a, ok := p.articles.ByRef(ref)
		if !ok {
			return nil, fail(apperr.ErrInvalidReference, path)
		}
		link.Article = a
	case !strings.Contains(path, "/"):
		a, m := p.articles.ByLabel(tree.Label(path))
		switch m {
		case tree.Collision:
			return nil, fail(apperr.ErrAmbiguousReference, path)
		case tree.NotFound:
			return nil, fail(apperr.ErrInvalidReference, path)
		}
		link.Article = a
	default:
		return nil, fail(apperr.ErrInvalidReference, path)
	}
	if link.Article == nil {
		return nil, fail(apperr.ErrInvalidReference, url)
	}
	if anchor != "" {
		secs, err := link.Article.Sections()
		if err != nil {
			return nil, fmt.Errorf("resolve link %s: %w", url, err)
		}
		if _, m := secs.ByLabel(link.Anchor); m != tree.Unique {
			return nil, fail(apperr.ErrInvalidAnchor, url)
		}
	}
	return link, nil
}

// ResolveAsset resolves an image source to a file in the assets directory.
func (p *Project) ResolveAsset(url string) (*Asset, error) {
	return p.assets.resolve("asset", url)
}

// ResolveInclude resolves an include macro argument to a file in the
// includes directory. The argument omits the .md extension.
func (p *Project) ResolveInclude(arg string) (*Include, error) {
	return p.includes.resolve("include", arg)
}

// ResolveNode resolves a link, image or include macro node against p. Other
// nodes yield a zero Target.
func (p *Project) ResolveNode(from *Article, n ast.Node) Target {
	switch n := n.(type) {
	case *ast.Link:
		l, err := p.ResolveLink(from, string(n.Destination))
		return Target{Link: l, Err: err}
	case *ast.Image:
		if IsRemote(string(n.Destination)) {
			return Target{}
		}
		asset, err := p.ResolveAsset(string(n.Destination))
		return Target{Asset: asset, Err: err}
	case *zfm.BlockMacro:
		if n.Name != IncludeMacro || !n.HasArg {
			return Target{}
		}
		inc, err := p.ResolveInclude(n.Arg)
		return Target{Include: inc, Err: err}
	}
	return Target{}
}

// catalog is a tree of files under dir that is filled in lazily, as lookups
// find the files on disk.
type catalog[T any] struct {
	dir      string
	ext      string
	tree     *tree.Tree[T]
	searched map[tree.Label]bool
	create   func(node *tree.Node[T], path string) T
}

func newCatalog[T any](dir, ext string, create func(*tree.Node[T], string) T) *catalog[T] {
	return &catalog[T]{
		dir:      dir,
		ext:      ext,
		tree:     tree.New[T](),
		searched: make(map[tree.Label]bool),
		create:   create,
	}
}

func (c *catalog[T]) resolve(kind, target string) (T, error) {
	var zero T
	fail := func(err error) (T, error) {
		return zero, &ResolveError{Kind: kind, Target: target, Err: err}
	}
	switch {
	case strings.HasPrefix(target, "/"):
		ref, err := tree.ParseRef(target)
		if err != nil || ref.IsRoot() {
			return fail(apperr.ErrInvalidReference)
		}
		if item, ok := c.tree.ByRef(ref); ok {
			return item, nil
		}
		path := filepath.Join(c.dir, filepath.FromSlash(ref.String()[1:])+c.ext)
		if info, err := os.Stat(path); err != nil || !info.Mode().IsRegular() {
			return fail(apperr.ErrInvalidReference)
		}
		return c.add(ref, path), nil
	case target == "." || target == "..":
		return fail(apperr.ErrInvalidReference)
	case target != "" && !strings.Contains(target, "/"):
		label := tree.Label(target)
		if err := c.search(label); err != nil {
			return zero, fmt.Errorf("search %s: %w", c.dir, err)
		}
		item, m := c.tree.ByLabel(label)
		switch m {
		case tree.Collision:
			return fail(apperr.ErrAmbiguousReference)
		case tree.NotFound:
			return fail(apperr.ErrInvalidReference)
		}
		return item, nil
	default:
		return fail(apperr.ErrInvalidReference)
	}
}

// search walks dir once per label, adding every file that carries it.
func (c *catalog[T]) search(label tree.Label) error {
	if c.searched[label] {
		return nil
	}
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != c.dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || (c.ext != "" && filepath.Ext(d.Name()) != c.ext) {
			return nil
		}
		if tree.Label(strings.TrimSuffix(d.Name(), c.ext)) != label {
			return nil
		}
		rel, err := filepath.Rel(c.dir, path)
		if err != nil {
			return err
		}
		ref, err := tree.ParseRef("/" + strings.TrimSuffix(filepath.ToSlash(rel), c.ext))
		if err != nil {
			return err
		}
		if _, ok := c.tree.ByRef(ref); !ok {
			c.add(ref, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	c.searched[label] = true
	return nil
}

func (c *catalog[T]) add(ref tree.Ref, path string) T {
	return c.tree.Create(ref, func(n *tree.Node[T]) T { return c.create(n, path) })
}
