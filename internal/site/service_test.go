package site

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mk12/zendown/internal/apperr"
	"github.com/mk12/zendown/internal/build"
	"github.com/mk12/zendown/internal/index"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/testutil"
	"github.com/mk12/zendown/internal/watch"
)

var files = map[string]string{
	"content/intro.md":         "title: Intro\ntags: [start]\n---\nSee [install](install#setup).\n",
	"content/guide/install.md": "title: Install\nsubtitle: How to\n---\n## Setup\n\nBack to [intro](intro).\n",
	"content/x/dup.md":         "title: X\n---\n",
	"content/y/dup.md":         "title: Y\n---\n",
}

func newService(t *testing.T, withIndex bool) *Service {
	t.Helper()
	root := testutil.WriteProject(t, files)
	p, err := project.Open(root, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	var opts []Option
	if withIndex {
		opts = append(opts, WithIndex(testutil.TestDB(t)))
	}
	return NewService(p, build.Options{IgnoreErrors: true}, opts...)
}

func TestListArticles(t *testing.T) {
	s := newService(t, false)
	items, err := s.ListArticles(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)

	byRef := map[string]ArticleSummary{}
	for _, it := range items {
		byRef[it.Ref] = it
	}
	install := byRef["/guide/install"]
	assert.Equal(t, "Install", install.Title)
	assert.Equal(t, "How to", install.Subtitle)
	assert.Equal(t, "/guide/install.html", install.URL)
	assert.Equal(t, []string{}, install.Tags)
	assert.Equal(t, []string{"start"}, byRef["/intro"].Tags)
}

func TestGetArticle(t *testing.T) {
	s := newService(t, true)
	d, err := s.GetArticle(context.Background(), "install")
	require.NoError(t, err)
	assert.Equal(t, "/guide/install", d.Ref)
	assert.NotEmpty(t, d.Checksum)
	assert.Equal(t, []string{"setup"}, d.Sections)
	assert.Equal(t, []string{"/intro"}, d.Links)
	require.Len(t, d.Backlinks, 1)
	assert.Equal(t, index.Link{Source: "/intro", Target: "/guide/install#setup", Kind: index.KindLink}, d.Backlinks[0])

	_, err = s.GetArticle(context.Background(), "/nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = s.GetArticle(context.Background(), "dup")
	assert.ErrorIs(t, err, apperr.ErrAmbiguousReference)
	_, err = s.GetArticle(context.Background(), "/bad//ref")
	assert.ErrorIs(t, err, apperr.ErrInvalidReference)
}

func TestRenderArticle(t *testing.T) {
	s := newService(t, false)
	out, err := s.RenderArticle(context.Background(), "/intro", "")
	require.NoError(t, err)
	assert.Equal(t, "<p>See <a href=\"guide/install.html#setup\">install</a>.</p>\n", out)

	out, err = s.RenderArticle(context.Background(), "/intro", "page")
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="#install--setup">install</a>`)

	_, err = s.RenderArticle(context.Background(), "/intro", "pdf")
	assert.ErrorIs(t, err, build.ErrUnknownTarget)
}

func TestResolveReference(t *testing.T) {
	s := newService(t, false)
	ctx := context.Background()

	ref, err := s.ResolveReference(ctx, "", "install#setup")
	require.NoError(t, err)
	assert.Equal(t, &Reference{Target: "/guide/install#setup", Title: "Install", Section: "Setup"}, ref)

	ref, err = s.ResolveReference(ctx, "/guide/install", "#setup")
	require.NoError(t, err)
	assert.Equal(t, "/guide/install#setup", ref.Target)

	ref, err = s.ResolveReference(ctx, "", "https://example.com")
	require.NoError(t, err)
	assert.True(t, ref.External)

	_, err = s.ResolveReference(ctx, "", "install#nowhere")
	assert.ErrorIs(t, err, apperr.ErrInvalidAnchor)
	_, err = s.ResolveReference(ctx, "", "dup")
	assert.ErrorIs(t, err, apperr.ErrAmbiguousReference)
}

func TestBacklinksAndSearch(t *testing.T) {
	ctx := context.Background()
	_, err := newService(t, false).Backlinks(ctx, "/intro")
	assert.ErrorIs(t, err, ErrNoIndex)

	s := newService(t, true)
	back, err := s.Backlinks(ctx, "intro")
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, "/guide/install", back[0].Source)

	back, err = s.Backlinks(ctx, "/x/dup")
	require.NoError(t, err)
	assert.Empty(t, back)

	results, err := s.Search(ctx, "Back to", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/guide/install", results[0].Ref)
}

func TestBuildAndRebuild(t *testing.T) {
	s := newService(t, true)
	ctx := context.Background()
	res, err := s.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Articles)

	root := s.project.Root()
	out := filepath.Join(root, "out", "html")
	assert.FileExists(t, filepath.Join(out, "guide", "install.html"))

	intro := filepath.Join(root, "content", "intro.md")
	require.NoError(t, os.WriteFile(intro, []byte("title: Intro\n---\nChanged.\n"), 0o644))
	res, err = s.Rebuild(ctx, watch.Change{Modified: []string{intro}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Written)
	data, err := os.ReadFile(filepath.Join(out, "intro.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Changed.")

	back, err := s.Backlinks(ctx, "/guide/install")
	require.NoError(t, err)
	assert.Empty(t, back, "the index follows the rebuild")

	testutil.WriteFile(t, root, "zendown.yml", "project_name: Renamed\n")
	_, err = s.Rebuild(ctx, watch.Change{Config: true})
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(out, "intro.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Intro · Renamed")
}
