// Package site coordinates a project, its builds and its link index for the
// preview server and the MCP tools. Every operation holds one lock, so the
// project has a single writer.
package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mk12/zendown/internal/apperr"
	"github.com/mk12/zendown/internal/build"
	"github.com/mk12/zendown/internal/index"
	"github.com/mk12/zendown/internal/metrics"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/tree"
	"github.com/mk12/zendown/internal/watch"
	"github.com/mk12/zendown/internal/zfm"
)

// ErrNoIndex is returned by index-backed operations when the service has no
// link index.
var ErrNoIndex = errors.New("link index unavailable")

// ArticleSummary is a lightweight item in a list response.
type ArticleSummary struct {
	Ref      string   `json:"ref"`
	Title    string   `json:"title"`
	Subtitle string   `json:"subtitle,omitempty"`
	Tags     []string `json:"tags"`
	Path     string   `json:"path"`
	URL      string   `json:"url"`
}

// ArticleDetail is the full representation of an article.
type ArticleDetail struct {
	ArticleSummary
	Checksum  string       `json:"checksum"`
	Sections  []string     `json:"sections"`
	Links     []string     `json:"links"`
	Backlinks []index.Link `json:"backlinks"`
}

// Reference is what a link destination resolved to.
type Reference struct {
	Target   string `json:"target"`
	External bool   `json:"external,omitempty"`
	Title    string `json:"title,omitempty"`
	Section  string `json:"section,omitempty"`
}

// Service serializes access to a project.
type Service struct {
	mu       sync.Mutex
	project  *project.Project
	db       *index.DB
	opts     build.Options
	recorder metrics.Recorder
	logger   *slog.Logger
	env      *build.Env
}

// Option configures a Service.
type Option func(*Service)

// WithIndex backs Backlinks and Search with db.
func WithIndex(db *index.DB) Option {
	return func(s *Service) { s.db = db }
}

// WithRecorder reports builds and render errors to rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Service) { s.recorder = rec }
}

// NewService creates a service for p. Builds use opts.
func NewService(p *project.Project, opts build.Options, options ...Option) *Service {
	s := &Service{
		project:  p,
		opts:     opts,
		recorder: metrics.NoopRecorder{},
		logger:   p.Logger(),
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// environment returns the build env, creating it after config changes.
func (s *Service) environment() (*build.Env, error) {
	if s.env != nil {
		return s.env, nil
	}
	env, err := build.NewEnv(s.project, s.opts)
	if err != nil {
		return nil, err
	}
	env.Recorder = s.recorder
	env.Index = s.db
	s.env = env
	return env, nil
}

// Build writes the html target and refreshes the link index.
func (s *Service) Build(ctx context.Context) (build.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build(ctx)
}

func (s *Service) build(ctx context.Context) (build.Result, error) {
	env, err := s.environment()
	if err != nil {
		return build.Result{Target: "html"}, err
	}
	res, err := build.Run(ctx, build.NewHTML(), env)
	if s.db != nil {
		if _, syncErr := build.SyncIndex(s.project, s.db); syncErr != nil {
			s.logger.Warn("index sync failed", slog.String("error", syncErr.Error()))
		}
	}
	return res, err
}

// Rebuild applies a batch of file changes and rebuilds.
func (s *Service) Rebuild(ctx context.Context, c watch.Change) (build.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder.IncRebuild(c.Trigger())
	if err := watch.Apply(s.project, c); err != nil {
		return build.Result{Target: "html"}, err
	}
	if c.Config {
		s.env = nil
	}
	return s.build(ctx)
}

// ListArticles returns every article in discovery order.
func (s *Service) ListArticles(_ context.Context) ([]ArticleSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	articles := s.project.Articles()
	items := make([]ArticleSummary, 0, len(articles))
	for _, a := range articles {
		sum, err := summarize(a)
		if err != nil {
			return nil, err
		}
		items = append(items, sum)
	}
	return items, nil
}

func summarize(a *project.Article) (ArticleSummary, error) {
	cfg, err := a.Config()
	if err != nil {
		return ArticleSummary{}, err
	}
	return ArticleSummary{
		Ref:      a.Ref().String(),
		Title:    cfg.Title,
		Subtitle: cfg.Subtitle,
		Tags:     nonNilSlice(cfg.Tags),
		Path:     a.Path(),
		URL:      "/" + build.ArticlePath(a),
	}, nil
}

// article looks up ref, which may be a full ref ("/guide/intro") or a
// unique label ("intro").
func (s *Service) article(ref string) (*project.Article, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty ref", apperr.ErrInvalidReference)
	}
	if ref[0] != '/' {
		a, m := s.project.ArticleTree().ByLabel(tree.Label(ref))
		switch m {
		case tree.Unique:
			return a, nil
		case tree.Collision:
			return nil, fmt.Errorf("%w: %s", apperr.ErrAmbiguousReference, ref)
		}
		return nil, fmt.Errorf("%w: article %s", apperr.ErrNotFound, ref)
	}
	r, err := tree.ParseRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidReference, err)
	}
	a, ok := s.project.Article(r)
	if !ok {
		return nil, fmt.Errorf("%w: article %s", apperr.ErrNotFound, ref)
	}
	return a, nil
}

// GetArticle returns the details of one article, with backlinks when the
// service has an index.
func (s *Service) GetArticle(_ context.Context, ref string) (*ArticleDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.article(ref)
	if err != nil {
		return nil, err
	}
	sum, err := summarize(a)
	if err != nil {
		return nil, err
	}
	d := &ArticleDetail{ArticleSummary: sum, Sections: []string{}, Links: []string{}, Backlinks: []index.Link{}}
	if d.Checksum, err = a.Checksum(); err != nil {
		return nil, err
	}
	secs, err := a.Sections()
	if err != nil {
		return nil, err
	}
	for _, sec := range secs.Items() {
		d.Sections = append(d.Sections, string(sec.Anchor()))
	}
	links, err := a.Links(s.project)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		d.Links = append(d.Links, l.String())
	}
	if s.db != nil {
		back, err := s.backlinks(a)
		if err != nil {
			return nil, err
		}
		d.Backlinks = nonNilSlice(back)
	}
	return d, nil
}

// RenderArticle renders the body of ref as target would, "html" by default.
func (s *Service) RenderArticle(_ context.Context, ref, target string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if target == "" {
		target = "html"
	}
	t, err := build.Lookup(target)
	if err != nil {
		return "", err
	}
	a, err := s.article(ref)
	if err != nil {
		return "", err
	}
	env, err := s.environment()
	if err != nil {
		return "", err
	}
	return env.Renderer(t, build.RenderOptions(t, s.project)).Article(a)
}

// ResolveReference resolves url as a link written in the article from.
// from may be empty for links that name an article.
func (s *Service) ResolveReference(_ context.Context, from, url string) (*Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var src *project.Article
	if from != "" {
		a, err := s.article(from)
		if err != nil {
			return nil, err
		}
		src = a
	}
	link, err := s.project.ResolveLink(src, url)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return &Reference{Target: url, External: true}, nil
	}
	ref := &Reference{Target: link.Article.Ref().String(), Title: link.Article.Title()}
	if link.Anchor != "" {
		ref.Target += "#" + string(link.Anchor)
	}
	sec, err := link.Section()
	if err != nil {
		return nil, err
	}
	if sec != nil && sec.Heading != nil {
		doc, err := link.Article.Doc()
		if err != nil {
			return nil, err
		}
		ref.Section = zfm.CollectText(sec.Heading, doc.Source)
	}
	return ref, nil
}

// Backlinks returns the links pointing at ref.
func (s *Service) Backlinks(_ context.Context, ref string) ([]index.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNoIndex
	}
	a, err := s.article(ref)
	if err != nil {
		return nil, err
	}
	back, err := s.backlinks(a)
	return nonNilSlice(back), err
}

func (s *Service) backlinks(a *project.Article) ([]index.Link, error) {
	if _, err := build.SyncIndex(s.project, s.db); err != nil {
		return nil, err
	}
	return s.db.Backlinks(a.Ref().String())
}

// Search runs a full-text search over article titles and bodies.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrNoIndex
	}
	if _, err := build.SyncIndex(s.project, s.db); err != nil {
		return nil, err
	}
	results, err := s.db.Search(query, limit)
	return nonNilSlice(results), err
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
