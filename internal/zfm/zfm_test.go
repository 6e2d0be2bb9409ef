package zfm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"
)

func findAll[T ast.Node](root ast.Node) []T {
	var out []T
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := n.(T); ok {
				out = append(out, t)
			}
		}
		return ast.WalkContinue, nil
	})
	return out
}

func TestParseInlineMacro(t *testing.T) {
	doc := Parse([]byte("Hello @who and @greet{world}, mail me at a@b.com.\n"))
	macros := findAll[*InlineMacro](doc.Root)
	require.Len(t, macros, 2)
	assert.Equal(t, "who", macros[0].Name)
	assert.False(t, macros[0].HasArg)
	assert.Equal(t, "greet", macros[1].Name)
	assert.True(t, macros[1].HasArg)
	assert.Equal(t, "world", macros[1].Arg)
}

func TestInlineMacroNeedsWordBoundary(t *testing.T) {
	doc := Parse([]byte("not a macro: @fooBar\n"))
	assert.Empty(t, findAll[*InlineMacro](doc.Root))
}

func TestParseBlockMacro(t *testing.T) {
	doc := Parse([]byte("@toc\n\n@include{/shared/footer}\n\n@note:\n> First line.\n>\n> Second para.\n\nAfter.\n"))
	blocks := doc.Blocks()
	require.Len(t, blocks, 4)

	toc, ok := blocks[0].(*BlockMacro)
	require.True(t, ok)
	assert.Equal(t, "toc", toc.Name)
	assert.False(t, toc.HasBody())

	inc, ok := blocks[1].(*BlockMacro)
	require.True(t, ok)
	assert.Equal(t, "include", inc.Name)
	assert.Equal(t, "/shared/footer", inc.Arg)

	note, ok := blocks[2].(*BlockMacro)
	require.True(t, ok)
	assert.Equal(t, "note", note.Name)
	assert.True(t, note.HasBody())
	body := note.Body()
	require.Len(t, body, 2)
	assert.Equal(t, "First line.", CollectText(body[0], doc.Source))
	assert.Equal(t, "Second para.", CollectText(body[1], doc.Source))

	_, ok = blocks[3].(*ast.Paragraph)
	assert.True(t, ok)
}

func TestBlockMacroMustOwnWholeLine(t *testing.T) {
	doc := Parse([]byte("@toc is not alone\n"))
	blocks := doc.Blocks()
	require.Len(t, blocks, 1)
	_, ok := blocks[0].(*ast.Paragraph)
	assert.True(t, ok)
}

func TestHeadingExplicitID(t *testing.T) {
	doc := Parse([]byte("# Intro {#start}\n\n## Plain\n"))
	headings := findAll[*ast.Heading](doc.Root)
	require.Len(t, headings, 2)

	id, ok := HeadingID(headings[0])
	require.True(t, ok)
	assert.Equal(t, "start", id)
	assert.Equal(t, "Intro", CollectText(headings[0], doc.Source))

	_, ok = HeadingID(headings[1])
	assert.False(t, ok)

	SetHeadingID(headings[1], "plain")
	id, ok = HeadingID(headings[1])
	require.True(t, ok)
	assert.Equal(t, "plain", id)
}

func TestSmartify(t *testing.T) {
	cases := map[string]string{
		`"Hi," she said.`:  "“Hi,” she said.",
		`it's 'quoted'`:    "it’s ‘quoted’",
		"wait... what--no": "wait… what—no",
		"plain":            "plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, Smartify(in), in)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":           "hello-world",
		"  Leading & trailing ": "leading-trailing",
		"Crème Brûlée":          "creme-brulee",
		"Isn't it":              "isnt-it",
		"Sub":                   "sub",
		"1.2 Release notes":     "1-2-release-notes",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
}
