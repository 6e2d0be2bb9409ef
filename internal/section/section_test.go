package section

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/tree"
	"github.com/mk12/zendown/internal/zfm"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func parse(t *testing.T, src string) (*zfm.Document, *tree.Tree[*Section]) {
	t.Helper()
	doc := zfm.Parse([]byte(src))
	return doc, Parse(doc.Blocks(), Anchors(doc.Source, discard(), "test.md"))
}

func preorder(n *tree.Node[*Section], visit func(*Section)) {
	for _, c := range n.Children() {
		s, _ := c.Item()
		visit(s)
		preorder(c, visit)
	}
}

func TestNestingFollowsHeadingLevels(t *testing.T) {
	sequences := [][]int{
		{1, 2, 3, 2, 1},
		{2, 1, 3, 3, 1},
		{1, 3, 2, 4, 1, 6},
		{3, 2, 1},
		{1, 1, 1},
		{4, 5, 6, 5, 4, 2, 3},
	}
	for _, levels := range sequences {
		t.Run(fmt.Sprint(levels), func(t *testing.T) {
			var src strings.Builder
			for i, l := range levels {
				fmt.Fprintf(&src, "%s H%d\n\nbody %d\n\n", strings.Repeat("#", l), i, i)
			}
			_, tr := parse(t, src.String())

			var got []int
			var open []*Section
			preorder(tr.Root(), func(s *Section) {
				got = append(got, s.Level())

				for len(open) > 0 && open[len(open)-1].Level() >= s.Level() {
					open = open[:len(open)-1]
				}
				parent, hasParent := s.Node.Parent().Item()
				if len(open) == 0 {
					assert.False(t, hasParent, "%s should be top-level", s.Anchor())
				} else {
					require.True(t, hasParent)
					assert.Same(t, open[len(open)-1], parent)
				}
				open = append(open, s)
			})
			assert.Equal(t, levels, got)
		})
	}
}

func TestDuplicateHeadingTextGetsSuffix(t *testing.T) {
	_, tr := parse(t, "# Same\n\n# Same\n\n## Same\n")
	var anchors []Anchor
	preorder(tr.Root(), func(s *Section) { anchors = append(anchors, s.Anchor()) })
	assert.Equal(t, []Anchor{"same", "same-1", "same-2"}, anchors)

	for _, a := range anchors {
		_, m := tr.ByLabel(a)
		assert.Equal(t, tree.Unique, m)
	}
}

func TestAnchorWrittenToHeading(t *testing.T) {
	doc, tr := parse(t, "# Getting Started\n")
	s, m := tr.ByLabel("getting-started")
	require.Equal(t, tree.Unique, m)
	id, ok := zfm.HeadingID(s.Heading)
	require.True(t, ok)
	assert.Equal(t, "getting-started", id)
	assert.Equal(t, "Getting Started", zfm.CollectText(s.Heading, doc.Source))
}

func TestDuplicateExplicitIDIsLoggedAndRenamed(t *testing.T) {
	doc := zfm.Parse([]byte("# One {#x}\n\n# Two {#x}\n"))
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tr := Parse(doc.Blocks(), Anchors(doc.Source, logger, "dup.md"))

	var anchors []Anchor
	preorder(tr.Root(), func(s *Section) { anchors = append(anchors, s.Anchor()) })
	assert.Equal(t, []Anchor{"x", "x-1"}, anchors)
	assert.Contains(t, logs.String(), "duplicate heading ID")
	assert.Contains(t, logs.String(), "dup.md")
}

func TestExtendCoversSubtree(t *testing.T) {
	doc, tr := parse(t, "intro\n\n# A\n\na1\n\n## B\n\nb1\n\nb2\n\n### C\n\nc1\n\n## D\n\nd1\n\n# E\n")
	text := func(nodes []ast.Node) []string {
		var out []string
		for _, n := range nodes {
			out = append(out, zfm.CollectText(n, doc.Source))
		}
		return out
	}

	c, _ := tr.ByLabel("c")
	assert.Equal(t, []string{"c1"}, text(c.Blocks))

	b, _ := tr.ByLabel("b")
	assert.Equal(t, []string{"b1", "b2", "C", "c1"}, text(b.Blocks))

	a, _ := tr.ByLabel("a")
	assert.Equal(t, []string{"a1", "B", "b1", "b2", "C", "c1", "D", "d1"}, text(a.Blocks))
	assert.Equal(t, "A", text(a.All())[0])

	e, _ := tr.ByLabel("e")
	assert.Empty(t, e.Blocks)

	top := FirstLevel(tr)
	require.Len(t, top, 2)
	assert.Equal(t, Anchor("a"), top[0].Anchor())
	assert.Len(t, top[0].Subsections(), 2)
}

func TestIdentityLabelsWithoutGenerator(t *testing.T) {
	doc := zfm.Parse([]byte("# X\n\n# X\n"))
	tr := Parse(doc.Blocks(), nil)
	assert.Equal(t, 2, tr.Len())
	top := FirstLevel(tr)
	require.Len(t, top, 2)
	assert.NotEqual(t, top[0].Anchor(), top[1].Anchor())
}
