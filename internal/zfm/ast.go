// Package zfm configures the Markdown tokenizer for Zendown flavored Markdown:
// CommonMark (goldmark) plus inline and block macros and explicit heading ids.
package zfm

import (
	"github.com/yuin/goldmark/ast"
)

// KindInlineMacro is the node kind of InlineMacro.
var KindInlineMacro = ast.NewNodeKind("InlineMacro")

// InlineMacro is an `@name` or `@name{arg}` invocation inside flowing text.
type InlineMacro struct {
	ast.BaseInline
	Name   string
	Arg    string
	HasArg bool
}

// Kind implements ast.Node.
func (n *InlineMacro) Kind() ast.NodeKind { return KindInlineMacro }

// Dump implements ast.Node.
func (n *InlineMacro) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name, "Arg": n.Arg}, nil)
}

// KindBlockMacro is the node kind of BlockMacro.
var KindBlockMacro = ast.NewNodeKind("BlockMacro")

// BlockMacro is a line consisting only of `@name` or `@name{arg}`. When the
// line ends in a colon, the blockquote that follows is its child.
type BlockMacro struct {
	ast.BaseBlock
	Name   string
	Arg    string
	HasArg bool
	Colon  bool
}

// Kind implements ast.Node.
func (n *BlockMacro) Kind() ast.NodeKind { return KindBlockMacro }

// Dump implements ast.Node.
func (n *BlockMacro) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Name": n.Name, "Arg": n.Arg}, nil)
}

// HasBody reports whether the macro was written with a trailing colon and a
// quoted body.
func (n *BlockMacro) HasBody() bool {
	_, ok := n.FirstChild().(*ast.Blockquote)
	return n.Colon && ok
}

// Body returns the blocks inside the macro's quoted body.
func (n *BlockMacro) Body() []ast.Node {
	quote, ok := n.FirstChild().(*ast.Blockquote)
	if !ok {
		return nil
	}
	return Children(quote)
}

// Children returns the direct children of n as a slice.
func Children(n ast.Node) []ast.Node {
	var out []ast.Node
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		out = append(out, c)
	}
	return out
}
