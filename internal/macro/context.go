package macro

import (
	"errors"

	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/zfm"
)

// Renderer renders parsed nodes to HTML. source is the text the nodes'
// segments refer to.
type Renderer interface {
	Render(ctx *Context, source []byte, nodes []ast.Node) (string, error)
}

const maxDepth = 16

// ErrTooDeep is returned when includes nest more deeply than allowed,
// usually because an include includes itself.
var ErrTooDeep = errors.New("includes nested too deeply")

// Context is what a macro sees of the render in progress.
type Context struct {
	Project  *project.Project
	Article  *project.Article
	Builder  project.Builder
	Renderer Renderer
	// Source is the text of the document the invocation appears in.
	Source []byte

	depth int
}

// Render renders nodes from the current document.
func (c *Context) Render(nodes ...ast.Node) (string, error) {
	return c.Renderer.Render(c, c.Source, nodes)
}

// RenderDocument renders nodes from another document, such as an include.
func (c *Context) RenderDocument(source []byte, nodes []ast.Node) (string, error) {
	if c.depth >= maxDepth {
		return "", ErrTooDeep
	}
	nested := *c
	nested.Source = source
	nested.depth++
	return c.Renderer.Render(&nested, source, nodes)
}

// Text returns the plain text under the given nodes.
func (c *Context) Text(nodes ...ast.Node) string {
	return zfm.CollectTextAll(nodes, c.Source)
}
