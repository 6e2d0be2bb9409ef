// Package project holds the state of one Zendown project: its configuration
// and the trees of articles, assets and includes, with the reference
// resolution rules between them.
package project

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/mk12/zendown/internal/apperr"
	"github.com/mk12/zendown/internal/tree"
)

// Project directories and files, relative to the root.
const (
	ContentDir  = "content"
	AssetsDir   = "assets"
	IncludesDir = "includes"
	OutDir      = "out"
	IgnoreFile  = ".zendownignore"
)

var articleExts = map[string]bool{".md": true, ".yml": true}

const includeExt = ".md"

// Project is the in-memory state of a project.
type Project struct {
	root   string
	cfg    *Config
	logger *slog.Logger
	ignore *ignore.GitIgnore

	articles *tree.Tree[*Article]
	assets   *catalog[*Asset]
	includes *catalog[*Include]
}

// Find walks up from dir to the first directory containing zendown.yml.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ConfigFile)); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", apperr.ErrNotProject
		}
		dir = parent
	}
}

// Open loads the project rooted at root and scans its articles.
func Open(root string, logger *slog.Logger) (*Project, error) {
	cfg, err := LoadConfig(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, err
	}
	p := New(root, cfg, logger)
	if err := p.ScanArticles(); err != nil {
		return nil, err
	}
	return p, nil
}

// New returns a project with no articles. Call ScanArticles to populate it.
func New(root string, cfg *Config, logger *slog.Logger) *Project {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Project{root: root, cfg: cfg, logger: logger}
	p.reset()
	return p
}

func (p *Project) reset() {
	p.articles = tree.New[*Article]()
	p.assets = newCatalog(filepath.Join(p.root, AssetsDir), "", func(n *tree.Node[*Asset], path string) *Asset {
		return newAsset(n, path, p.logger)
	})
	p.includes = newCatalog(filepath.Join(p.root, IncludesDir), includeExt, func(n *tree.Node[*Include], path string) *Include {
		return newInclude(n, path, p.logger)
	})
}

// Reload rereads the config file and rescans the articles. On error the
// project is left unchanged.
func (p *Project) Reload() error {
	cfg, err := LoadConfig(filepath.Join(p.root, ConfigFile))
	if err != nil {
		return err
	}
	articles, ign, err := p.scan()
	if err != nil {
		return err
	}
	p.cfg = cfg
	p.swap(articles, ign)
	return nil
}

// Root returns the project root directory.
func (p *Project) Root() string { return p.root }

// Config returns the project configuration.
func (p *Project) Config() *Config { return p.cfg }

// Name returns the project name.
func (p *Project) Name() string { return p.cfg.ProjectName }

// Logger returns the project logger.
func (p *Project) Logger() *slog.Logger { return p.logger }

// Macros returns the project-local macro definitions.
func (p *Project) Macros() map[string]MacroDef { return p.cfg.Macros }

// OutputDir returns the output directory for a build target.
func (p *Project) OutputDir(target string) string {
	return filepath.Join(p.root, OutDir, target)
}

// ArticleTree returns the tree of articles.
func (p *Project) ArticleTree() *tree.Tree[*Article] { return p.articles }

// Articles returns every article in discovery order.
func (p *Project) Articles() []*Article { return p.articles.Items() }

// Article returns the article at ref.
func (p *Project) Article(ref tree.Ref) (*Article, bool) { return p.articles.ByRef(ref) }

// Index returns the index article of the directory at ref.
func (p *Project) Index(dir tree.Ref) (*Article, bool) {
	return p.articles.ByRef(dir.Child(IndexLabel))
}

// Assets returns the assets resolved so far.
func (p *Project) Assets() []*Asset { return p.assets.tree.Items() }

// Includes returns the includes resolved so far.
func (p *Project) Includes() []*Include { return p.includes.tree.Items() }

// ScanArticles rebuilds the article tree from the content directory. Asset
// and include lookups start over too.
func (p *Project) ScanArticles() error {
	articles, ign, err := p.scan()
	if err != nil {
		return err
	}
	p.swap(articles, ign)
	return nil
}

// swap installs a freshly scanned article tree and drops lazily found
// assets and includes.
func (p *Project) swap(articles *tree.Tree[*Article], ign *ignore.GitIgnore) {
	p.reset()
	p.articles = articles
	p.ignore = ign
	p.logger.Debug("scanned articles", slog.Int("count", articles.Len()))
}

// scan walks content/ into a new article tree without touching p.
func (p *Project) scan() (*tree.Tree[*Article], *ignore.GitIgnore, error) {
	ign, err := ignore.CompileIgnoreFile(filepath.Join(p.root, IgnoreFile))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		ign = ignore.CompileIgnoreLines()
	case err != nil:
		return nil, nil, fmt.Errorf("read %s: %w", IgnoreFile, err)
	}

	articles := tree.New[*Article]()
	content := filepath.Join(p.root, ContentDir)
	err = filepath.WalkDir(content, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == content {
			return nil
		}
		rel, err := filepath.Rel(content, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(d.Name(), ".") || ign.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !articleExts[filepath.Ext(rel)] {
			return nil
		}
		ref, err := tree.ParseRef("/" + strings.TrimSuffix(rel, filepath.Ext(rel)))
		if err != nil {
			p.logger.Error("skipping article", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if other, ok := articles.ByRef(ref); ok {
			p.logger.Error("duplicate article",
				slog.String("ref", ref.String()),
				slog.String("path", path),
				slog.String("existing", other.Path()))
			return nil
		}
		articles.Create(ref, func(n *tree.Node[*Article]) *Article {
			return newArticle(n, path, p.logger)
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("%s directory: %w", ContentDir, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("scan articles: %w", err)
	}
	return articles, ign, nil
}

// FindByPath returns the resource loaded from path, if the project knows it.
func (p *Project) FindByPath(path string) (Resource, bool) {
	for _, a := range p.Articles() {
		if a.Path() == path {
			return a, true
		}
	}
	for _, a := range p.Assets() {
		if a.Path() == path {
			return a, true
		}
	}
	for _, i := range p.Includes() {
		if i.Path() == path {
			return i, true
		}
	}
	return nil, false
}

// Resource is the lifecycle surface shared by articles, assets and includes.
type Resource interface {
	Path() string
	Load() error
	Unload()
}

// Unresolve drops the resolve stage of every article, so references are
// looked up again on next use.
func (p *Project) Unresolve() {
	for _, a := range p.Articles() {
		a.Unresolve()
	}
}
