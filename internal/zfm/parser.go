package zfm

import (
	"bytes"
	"regexp"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	inlineMacroRe = regexp.MustCompile(`^@([a-z][a-z0-9]*)(\{([^}]*)\})?`)
	blockMacroRe  = regexp.MustCompile(`^@([a-z][a-z0-9]*)(\{([^}]*)\})?(:)?$`)
)

type inlineMacroParser struct{}

func (p *inlineMacroParser) Trigger() []byte { return []byte{'@'} }

func (p *inlineMacroParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	prev := block.PrecendingCharacter()
	if unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == '\\' {
		return nil
	}
	line, _ := block.PeekLine()
	m := inlineMacroRe.FindSubmatchIndex(line)
	if m == nil {
		return nil
	}
	end := m[1]
	hasArg := m[4] >= 0
	if !hasArg && end < len(line) && isWordByte(line[end]) {
		return nil
	}
	node := &InlineMacro{Name: string(line[m[2]:m[3]]), HasArg: hasArg}
	if hasArg {
		node.Arg = string(line[m[6]:m[7]])
	}
	block.Advance(end)
	return node
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type blockMacroParser struct{}

func (p *blockMacroParser) Trigger() []byte { return []byte{'@'} }

func (p *blockMacroParser) Open(_ ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, _ := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || pos >= len(line) {
		return nil, parser.NoChildren
	}
	m := blockMacroRe.FindSubmatch(bytes.TrimRight(line[pos:], " \t\r\n"))
	if m == nil {
		return nil, parser.NoChildren
	}
	node := &BlockMacro{Name: string(m[1]), HasArg: m[2] != nil, Colon: len(m[4]) > 0}
	if node.HasArg {
		node.Arg = string(m[3])
	}
	adv := len(line)
	if adv > 0 && line[adv-1] == '\n' {
		adv--
	}
	reader.Advance(adv)
	if node.Colon {
		return node, parser.HasChildren
	}
	return node, parser.NoChildren
}

func (p *blockMacroParser) Continue(node ast.Node, reader text.Reader, _ parser.Context) parser.State {
	macro := node.(*BlockMacro)
	if !macro.Colon {
		return parser.Close
	}
	line, _ := reader.PeekLine()
	w, pos := util.IndentWidth(line, reader.LineOffset())
	if w > 3 || pos >= len(line) || line[pos] != '>' {
		return parser.Close
	}
	return parser.Continue | parser.HasChildren
}

func (p *blockMacroParser) Close(ast.Node, text.Reader, parser.Context) {}

func (p *blockMacroParser) CanInterruptParagraph() bool { return false }

func (p *blockMacroParser) CanAcceptIndentedLine() bool { return false }

type extension struct{}

// Extension adds ZFM macro syntax to a goldmark instance.
var Extension goldmark.Extender = extension{}

func (extension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&blockMacroParser{}, 550)),
		parser.WithInlineParsers(util.Prioritized(&inlineMacroParser{}, 550)),
	)
}

// New returns a goldmark instance configured for ZFM.
func New(opts ...goldmark.Option) goldmark.Markdown {
	base := []goldmark.Option{
		goldmark.WithExtensions(Extension),
		goldmark.WithParserOptions(parser.WithHeadingAttribute()),
	}
	return goldmark.New(append(base, opts...)...)
}

var markdown = New()

// Document is a tokenized ZFM body. Node segments index into Source.
type Document struct {
	Root   ast.Node
	Source []byte
}

// Parse tokenizes src.
func Parse(src []byte) *Document {
	return &Document{
		Root:   markdown.Parser().Parse(text.NewReader(src)),
		Source: src,
	}
}

// Blocks returns the top-level blocks of the document.
func (d *Document) Blocks() []ast.Node {
	return Children(d.Root)
}

// HeadingID returns the heading's id attribute, if set.
func HeadingID(h *ast.Heading) (string, bool) {
	v, ok := h.AttributeString("id")
	if !ok {
		return "", false
	}
	switch id := v.(type) {
	case []byte:
		return string(id), true
	case string:
		return id, true
	}
	return "", false
}

// SetHeadingID sets the heading's id attribute.
func SetHeadingID(h *ast.Heading, id string) {
	h.SetAttributeString("id", []byte(id))
}
