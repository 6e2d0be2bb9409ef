// Package section turns the flat block sequence of a document into a tree of
// heading-delimited sections.
package section

import (
	"fmt"
	"log/slog"

	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/tree"
	"github.com/mk12/zendown/internal/zfm"
)

// Anchor is a label scoped to the sections of one article. Anchors are unique
// within an article and double as HTML ids.
type Anchor = tree.Label

// Section is a heading plus the blocks that follow it up to the next heading
// of equal or shallower level. After parsing, Blocks also covers every
// descendant section (heading included), so a section can be rendered alone.
type Section struct {
	Node    *tree.Node[*Section]
	Heading *ast.Heading
	Blocks  []ast.Node
}

// Level returns the heading level, 1 to 6.
func (s *Section) Level() int { return s.Heading.Level }

// Anchor returns the section's anchor.
func (s *Section) Anchor() Anchor { return s.Node.Label() }

// All returns the heading followed by Blocks.
func (s *Section) All() []ast.Node {
	return append([]ast.Node{s.Heading}, s.Blocks...)
}

// Subsections returns the sections nested directly under s.
func (s *Section) Subsections() []*Section {
	return items(s.Node.Children())
}

func items(nodes []*tree.Node[*Section]) []*Section {
	out := make([]*Section, 0, len(nodes))
	for _, n := range nodes {
		if s, ok := n.Item(); ok {
			out = append(out, s)
		}
	}
	return out
}

// LabelFunc chooses an anchor for a heading given the anchors used so far.
type LabelFunc func(h *ast.Heading, used map[Anchor]struct{}) Anchor

// identityLabel derives labels from node identity. It is only suitable where
// anchors are never shown or looked up.
func identityLabel(h *ast.Heading, _ map[Anchor]struct{}) Anchor {
	return Anchor(fmt.Sprintf("%p", h))
}

// Parse builds a section tree from top-level blocks. Blocks before the first
// heading belong to no section. A nil gen falls back to identity labels.
func Parse(blocks []ast.Node, gen LabelFunc) *tree.Tree[*Section] {
	if gen == nil {
		gen = identityLabel
	}
	t := tree.New[*Section]()
	parent := t.Root()
	var prev *Section
	var buf []ast.Node
	used := make(map[Anchor]struct{})

	for _, block := range blocks {
		h, ok := block.(*ast.Heading)
		if !ok {
			buf = append(buf, block)
			continue
		}
		if prev != nil {
			prev.Blocks = buf
		}
		buf = nil

		label := gen(h, used)
		used[label] = struct{}{}

		if prev != nil && h.Level > prev.Level() {
			parent = prev.Node
		} else {
			for {
				s, ok := parent.Item()
				if !ok || h.Level > s.Level() {
					break
				}
				parent = parent.Parent()
			}
		}
		node := parent.AddChild(label)
		s := &Section{Node: node, Heading: h}
		t.Register(node, s)
		prev = s
	}
	if prev != nil {
		prev.Blocks = buf
	}

	var extend func(n *tree.Node[*Section]) []ast.Node
	extend = func(n *tree.Node[*Section]) []ast.Node {
		s, _ := n.Item()
		for _, child := range n.Children() {
			s.Blocks = append(s.Blocks, extend(child)...)
		}
		return s.All()
	}
	for _, n := range t.Root().Children() {
		extend(n)
	}
	return t
}

// Anchors returns the label function used for real articles: an explicit
// heading id wins, otherwise the slugified heading text. Collisions get a
// numeric suffix. Duplicate explicit ids are logged and de-duplicated the same
// way. The chosen anchor is written back as the heading's id attribute.
func Anchors(source []byte, logger *slog.Logger, path string) LabelFunc {
	return func(h *ast.Heading, used map[Anchor]struct{}) Anchor {
		original, explicit := zfm.HeadingID(h)
		if explicit {
			if _, dup := used[Anchor(original)]; dup {
				logger.Error("duplicate heading ID",
					slog.String("path", path),
					slog.String("id", original))
			}
		} else {
			original = zfm.Slugify(zfm.CollectText(h, source))
			if original == "" {
				original = "section"
			}
		}
		unique := original
		for i := 1; ; i++ {
			if _, taken := used[Anchor(unique)]; !taken {
				break
			}
			unique = fmt.Sprintf("%s-%d", original, i)
		}
		zfm.SetHeadingID(h, unique)
		return Anchor(unique)
	}
}

// FirstLevel returns the top sections of a parsed tree.
func FirstLevel(t *tree.Tree[*Section]) []*Section {
	return items(t.Root().Children())
}
