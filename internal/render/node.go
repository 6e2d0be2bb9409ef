package render

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"

	"github.com/mk12/zendown/internal/macro"
	"github.com/mk12/zendown/internal/project"
	"github.com/mk12/zendown/internal/zfm"
)

// nodeRenderer overrides goldmark's HTML output for the nodes ZFM treats
// specially. It holds the state of one Render call.
type nodeRenderer struct {
	r   *Renderer
	ctx *macro.Context
	// marked holds nodes rendered as an error marker on entry, whose exit
	// must write nothing.
	marked map[ast.Node]bool
}

func (n *nodeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindHeading, n.renderHeading)
	reg.Register(ast.KindLink, n.renderLink)
	reg.Register(ast.KindImage, n.renderImage)
	reg.Register(ast.KindHTMLBlock, n.renderHTMLBlock)
	reg.Register(ast.KindRawHTML, n.renderRawHTML)
	reg.Register(zfm.KindInlineMacro, n.renderInlineMacro)
	reg.Register(zfm.KindBlockMacro, n.renderBlockMacro)
	if n.r.opts.SmartTypography {
		reg.Register(ast.KindText, n.renderText)
	}
	if n.r.opts.InlineCodeMacro != "" {
		reg.Register(ast.KindCodeSpan, n.renderCodeSpan)
	}
}

func (n *nodeRenderer) renderHeading(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	h := node.(*ast.Heading)
	level := min(max(h.Level+n.r.opts.HeadingShift, 1), 6)
	if entering {
		fmt.Fprintf(w, "<h%d", level)
		switch {
		case h.Attributes() == nil:
		case n.r.opts.ScopeAnchor != nil && n.ctx.Article != nil:
			n.renderScopedAttributes(w, h)
		default:
			html.RenderAttributes(w, h, html.HeadingAttributeFilter)
		}
		_ = w.WriteByte('>')
	} else {
		fmt.Fprintf(w, "</h%d>\n", level)
	}
	return ast.WalkContinue, nil
}

// renderScopedAttributes writes the heading's attributes with its id passed
// through Options.ScopeAnchor. The cached document is left untouched.
func (n *nodeRenderer) renderScopedAttributes(w util.BufWriter, h *ast.Heading) {
	for _, attr := range h.Attributes() {
		if !html.HeadingAttributeFilter.Contains(attr.Name) {
			continue
		}
		var value string
		switch v := attr.Value.(type) {
		case []byte:
			value = string(v)
		case string:
			value = v
		default:
			value = fmt.Sprint(v)
		}
		if string(attr.Name) == "id" {
			value = n.r.opts.ScopeAnchor(n.ctx.Article, value)
		}
		fmt.Fprintf(w, ` %s="%s"`, attr.Name, util.EscapeHTML([]byte(value)))
	}
}

func (n *nodeRenderer) renderText(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	t := node.(*ast.Text)
	value := t.Segment.Value(source)
	if t.IsRaw() {
		html.DefaultWriter.RawWrite(w, value)
		return ast.WalkContinue, nil
	}
	html.DefaultWriter.Write(w, []byte(zfm.Smartify(string(value))))
	switch {
	case t.HardLineBreak():
		_, _ = w.WriteString("<br>\n")
	case t.SoftLineBreak():
		_ = w.WriteByte('\n')
	}
	return ast.WalkContinue, nil
}

func (n *nodeRenderer) renderCodeSpan(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	call := macro.Call{
		Name:   n.r.opts.InlineCodeMacro,
		Kind:   macro.Inline,
		Arg:    zfm.CollectText(node, source),
		HasArg: true,
	}
	n.invoke(w, call, false)
	return ast.WalkSkipChildren, nil
}

// target returns what node resolved to, resolving it now if the resolve stage
// never saw it.
func (n *nodeRenderer) target(node ast.Node) (t project.Target, logged bool) {
	if t, ok := n.ctx.Article.Target(node); ok {
		return t, true
	}
	return n.r.project.ResolveNode(n.ctx.Article, node), false
}

func (n *nodeRenderer) renderLink(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	link := node.(*ast.Link)
	if !entering {
		if !n.marked[node] {
			_, _ = w.WriteString("</a>")
		}
		return ast.WalkContinue, nil
	}
	t, logged := n.target(node)
	href := string(link.Destination)
	if t.Err == nil && t.Link != nil {
		href, t.Err = n.r.builder.ResolveLink(n.ctx.Article, *t.Link)
		logged = false
	}
	if t.Err != nil {
		n.marked[node] = true
		n.marker(w, t.Err, logged)
		return ast.WalkSkipChildren, nil
	}
	_, _ = w.WriteString(`<a href="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape([]byte(href), true)))
	_ = w.WriteByte('"')
	if link.Title != nil {
		_, _ = w.WriteString(` title="`)
		html.DefaultWriter.Write(w, link.Title)
		_ = w.WriteByte('"')
	}
	if link.Attributes() != nil {
		html.RenderAttributes(w, link, html.LinkAttributeFilter)
	}
	_ = w.WriteByte('>')
	if t.Link != nil && link.ChildCount() == 0 {
		_, _ = w.Write(util.EscapeHTML([]byte(t.Link.Article.Title())))
	}
	return ast.WalkContinue, nil
}

func (n *nodeRenderer) renderImage(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering || n.r.opts.NoImages {
		return ast.WalkSkipChildren, nil
	}
	img := node.(*ast.Image)
	t, logged := n.target(node)
	src := string(img.Destination)
	if t.Err == nil && t.Asset != nil {
		src, t.Err = n.r.builder.ResolveAsset(n.ctx.Article, t.Asset)
		logged = false
	}
	if t.Err != nil {
		n.marker(w, t.Err, logged)
		return ast.WalkSkipChildren, nil
	}
	escaped := util.EscapeHTML(util.URLEscape([]byte(src), true))
	if n.r.opts.ImageLinks {
		_, _ = w.WriteString(`<a href="`)
		_, _ = w.Write(escaped)
		_, _ = w.WriteString(`">`)
	}
	_, _ = w.WriteString(`<img src="`)
	_, _ = w.Write(escaped)
	_, _ = w.WriteString(`" alt="`)
	_, _ = w.Write(util.EscapeHTML([]byte(zfm.CollectText(node, source))))
	_ = w.WriteByte('"')
	if img.Title != nil {
		_, _ = w.WriteString(` title="`)
		html.DefaultWriter.Write(w, img.Title)
		_ = w.WriteByte('"')
	}
	if img.Attributes() != nil {
		html.RenderAttributes(w, img, html.ImageAttributeFilter)
	}
	_, _ = w.WriteString(">")
	if n.r.opts.ImageLinks {
		_, _ = w.WriteString("</a>")
	}
	return ast.WalkSkipChildren, nil
}

func (n *nodeRenderer) renderHTMLBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	b := node.(*ast.HTMLBlock)
	if b.HTMLBlockType == ast.HTMLBlockType2 {
		return ast.WalkSkipChildren, nil
	}
	if entering {
		lines := b.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			_, _ = w.Write(line.Value(source))
		}
	} else if b.HasClosure() {
		_, _ = w.Write(b.ClosureLine.Value(source))
	}
	return ast.WalkContinue, nil
}

func (n *nodeRenderer) renderRawHTML(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkSkipChildren, nil
	}
	raw := node.(*ast.RawHTML)
	segs := raw.Segments
	if segs.Len() > 0 && bytes.HasPrefix(segs.At(0).Value(source), []byte("<!--")) {
		return ast.WalkSkipChildren, nil
	}
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		_, _ = w.Write(seg.Value(source))
	}
	return ast.WalkSkipChildren, nil
}

func (n *nodeRenderer) renderInlineMacro(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	m := node.(*zfm.InlineMacro)
	n.invoke(w, macro.Call{Name: m.Name, Kind: macro.Inline, Arg: m.Arg, HasArg: m.HasArg}, false)
	return ast.WalkSkipChildren, nil
}

func (n *nodeRenderer) renderBlockMacro(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	m := node.(*zfm.BlockMacro)
	if m.Name == project.IncludeMacro {
		if t, logged := n.target(node); t.Err != nil {
			n.blockMarker(w, t.Err, logged)
			return ast.WalkSkipChildren, nil
		}
	}
	call := macro.Call{
		Name:        m.Name,
		Kind:        macro.Block,
		Arg:         m.Arg,
		HasArg:      m.HasArg,
		Children:    m.Body(),
		HasChildren: m.HasBody(),
	}
	n.invoke(w, call, true)
	return ast.WalkSkipChildren, nil
}

// invoke runs a macro and writes its output, or a marker if it fails.
func (n *nodeRenderer) invoke(w util.BufWriter, call macro.Call, block bool) {
	out, err := n.call(call)
	switch {
	case err != nil && block:
		n.blockMarker(w, err, false)
	case err != nil:
		n.marker(w, err, false)
	default:
		_, _ = w.WriteString(out)
		if block && !strings.HasSuffix(out, "\n") && out != "" {
			_ = w.WriteByte('\n')
		}
	}
}

func (n *nodeRenderer) call(call macro.Call) (string, error) {
	m, ok := n.r.macros.Lookup(call.Name)
	if !ok {
		return "", &macro.Error{Name: call.Name, Err: macro.ErrUndefined}
	}
	return m.Invoke(n.ctx, call)
}

func (n *nodeRenderer) blockMarker(w util.BufWriter, err error, logged bool) {
	_, _ = w.WriteString("<p>")
	n.marker(w, err, logged)
	_, _ = w.WriteString("</p>\n")
}

// marker writes an inline error marker for err. Errors from the resolve stage
// were logged there already.
func (n *nodeRenderer) marker(w util.BufWriter, err error, logged bool) {
	kind, info := Describe(err)
	n.r.recorder.IncRenderError(kind)
	if !logged {
		n.r.logger.Error(kind,
			slog.String("article", n.ctx.Article.Path()),
			slog.String("info", info))
	}
	_, _ = w.WriteString(Marker(kind, info))
}
