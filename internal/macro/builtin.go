package macro

import (
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark/ast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/section"
	"github.com/mk12/zendown/internal/zfm"
)

// Builtins returns a fresh registry holding the macros every project has.
func Builtins() *Registry {
	r := NewRegistry(nil)
	r.mustRegister(project.IncludeMacro, Block, include)
	r.mustRegister("toc", Block, toc)
	r.mustRegister("callout", Block, callout)
	r.mustRegister("note", Block, note)
	r.mustRegister("warning", Block, warning)
	r.mustRegister("defs", Block, defs)
	r.mustRegister("yell", Inline, yell)
	r.mustRegister("pop", Inline, pop)
	return r
}

// include splices in a file from the includes directory.
func include(ctx *Context, arg string) (string, error) {
	if arg == "" {
		return "", ErrMissingArg
	}
	inc, err := ctx.Project.ResolveInclude(arg)
	if err != nil {
		return "", err
	}
	doc, err := inc.Doc()
	if err != nil {
		return "", err
	}
	return ctx.RenderDocument(doc.Source, doc.Blocks())
}

// toc lists links to the article's top-level sections. Entries are plain
// text so headings containing links do not nest anchors.
func toc(ctx *Context) (string, error) {
	secs, err := ctx.Article.Sections()
	if err != nil {
		return "", err
	}
	doc, err := ctx.Article.Doc()
	if err != nil {
		return "", err
	}
	first := section.FirstLevel(secs)
	if len(first) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("<p>In this article:</p>\n<ul>\n")
	for _, s := range first {
		link := project.Interlink{Article: ctx.Article, Anchor: s.Anchor(), Self: true}
		href, err := ctx.Builder.ResolveLink(ctx.Article, link)
		if err != nil {
			return "", err
		}
		text := zfm.CollectText(s.Heading, doc.Source)
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", html.EscapeString(href), html.EscapeString(text))
	}
	b.WriteString("</ul>\n")
	return b.String(), nil
}

// callout wraps its body in a div whose class is the argument.
func callout(ctx *Context, arg string, children []ast.Node) (string, error) {
	if arg == "" {
		return "", ErrMissingArg
	}
	body, err := ctx.Render(children...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<div class=\"%s\"><strong>%s</strong>:\n%s</div>\n",
		html.EscapeString(arg), html.EscapeString(cases.Title(language.Und).String(arg)), body), nil
}

func note(ctx *Context, children []ast.Node) (string, error) {
	return callout(ctx, "note", children)
}

func warning(ctx *Context, children []ast.Node) (string, error) {
	return callout(ctx, "warning", children)
}

// defs renders a definition list. Each level 1 heading in the body is a term;
// the blocks under it are the definition, the first paragraph run in with the
// term.
func defs(ctx *Context, children []ast.Node) (string, error) {
	if len(children) == 0 {
		return "", ErrMissingChildren
	}
	var b strings.Builder
	for _, s := range section.FirstLevel(section.Parse(children, nil)) {
		term, err := ctx.Render(zfm.Children(s.Heading)...)
		if err != nil {
			return "", err
		}
		blocks := s.Blocks
		if p, ok := first(blocks).(*ast.Paragraph); ok {
			inner, err := ctx.Render(zfm.Children(p)...)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, "<p><strong>%s</strong>: %s</p>\n", term, inner)
			blocks = blocks[1:]
		} else {
			fmt.Fprintf(&b, "<p><strong>%s</strong>:</p>\n", term)
		}
		rest, err := ctx.Render(blocks...)
		if err != nil {
			return "", err
		}
		b.WriteString(rest)
	}
	return b.String(), nil
}

func first(nodes []ast.Node) ast.Node {
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

func yell(_ *Context, arg string) (string, error) {
	return html.EscapeString(cases.Upper(language.Und).String(arg)), nil
}

func pop(_ *Context, arg string) (string, error) {
	return "<strong>" + html.EscapeString(arg) + "</strong>", nil
}
