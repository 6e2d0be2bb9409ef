// Package tree provides a generic hierarchical container that addresses its
// items both by full path (Ref) and by short name (Label).
package tree

import (
	"fmt"
	"io"
	"strings"

	"github.com/disiqueira/gotree/v3"
)

// Label identifies a node among its siblings.
type Label string

// RootLabel is the label of every tree's root node.
const RootLabel Label = "$root"

func (l Label) String() string { return string(l) }

// Ref is the sequence of labels from the root to a node, not including the
// root label itself. Refs are comparable and usable as map keys.
type Ref struct {
	path string
}

// NewRef builds a Ref from its labels.
func NewRef(labels ...Label) Ref {
	if len(labels) == 0 {
		return Ref{}
	}
	var b strings.Builder
	for _, l := range labels {
		b.WriteByte('/')
		b.WriteString(string(l))
	}
	return Ref{path: b.String()}
}

// ParseRef parses the string form of a Ref, e.g. "/guide/install".
func ParseRef(s string) (Ref, error) {
	if !strings.HasPrefix(s, "/") {
		return Ref{}, fmt.Errorf("tree: ref %q must start with /", s)
	}
	if s == "/" {
		return Ref{}, nil
	}
	parts := strings.Split(s[1:], "/")
	labels := make([]Label, len(parts))
	for i, p := range parts {
		switch p {
		case "":
			return Ref{}, fmt.Errorf("tree: ref %q has an empty label", s)
		case ".", "..":
			return Ref{}, fmt.Errorf("tree: ref %q has a relative label %q", s, p)
		}
		labels[i] = Label(p)
	}
	return NewRef(labels...), nil
}

// Parts returns the labels of the ref.
func (r Ref) Parts() []Label {
	if r.path == "" {
		return nil
	}
	parts := strings.Split(r.path[1:], "/")
	labels := make([]Label, len(parts))
	for i, p := range parts {
		labels[i] = Label(p)
	}
	return labels
}

// Len returns the number of labels.
func (r Ref) Len() int {
	if r.path == "" {
		return 0
	}
	return strings.Count(r.path, "/")
}

// IsRoot reports whether r refers to the root.
func (r Ref) IsRoot() bool { return r.path == "" }

// Last returns the final label, or RootLabel for the root ref.
func (r Ref) Last() Label {
	if r.path == "" {
		return RootLabel
	}
	return Label(r.path[strings.LastIndexByte(r.path, '/')+1:])
}

// Child returns the ref of a child labeled l.
func (r Ref) Child(l Label) Ref {
	return Ref{path: r.path + "/" + string(l)}
}

// Parent returns the ref with the last label removed.
func (r Ref) Parent() Ref {
	if r.path == "" {
		return r
	}
	return Ref{path: r.path[:strings.LastIndexByte(r.path, '/')]}
}

func (r Ref) String() string {
	if r.path == "" {
		return "/"
	}
	return r.path
}

// Match describes the outcome of a short-label lookup.
type Match int

const (
	// NotFound means no item carries the label.
	NotFound Match = iota
	// Unique means exactly one item carries the label.
	Unique
	// Collision means two or more items carry the label, so the short form is
	// ambiguous and must not be treated as a hit.
	Collision
)

func (m Match) String() string {
	switch m {
	case Unique:
		return "unique"
	case Collision:
		return "collision"
	default:
		return "not found"
	}
}

// Node is an entry in a Tree. The tree owns its nodes; parent pointers are
// back-references only.
type Node[T any] struct {
	label    Label
	ref      Ref
	parent   *Node[T]
	item     T
	hasItem  bool
	children map[Label]*Node[T]
	order    []Label
}

func newRoot[T any]() *Node[T] {
	return &Node[T]{label: RootLabel, children: make(map[Label]*Node[T])}
}

// NewRoot returns a detached root node, for callers that build node
// hierarchies before registering them in a Tree.
func NewRoot[T any]() *Node[T] { return newRoot[T]() }

// Label returns the node's label.
func (n *Node[T]) Label() Label { return n.label }

// Ref returns the node's full path.
func (n *Node[T]) Ref() Ref { return n.ref }

// Parent returns the parent node, or nil for the root.
func (n *Node[T]) Parent() *Node[T] { return n.parent }

// Item returns the node's item, if any.
func (n *Node[T]) Item() (T, bool) { return n.item, n.hasItem }

// SetItem attaches item to the node without indexing it.
func (n *Node[T]) SetItem(item T) {
	n.item = item
	n.hasItem = true
}

// Child returns the child labeled l.
func (n *Node[T]) Child(l Label) (*Node[T], bool) {
	c, ok := n.children[l]
	return c, ok
}

// Children returns the children in insertion order.
func (n *Node[T]) Children() []*Node[T] {
	out := make([]*Node[T], 0, len(n.order))
	for _, l := range n.order {
		out = append(out, n.children[l])
	}
	return out
}

// AddChild creates a child labeled l. Callers must not add the same label
// twice under one parent.
func (n *Node[T]) AddChild(l Label) *Node[T] {
	child := &Node[T]{
		label:    l,
		ref:      n.ref.Child(l),
		parent:   n,
		children: make(map[Label]*Node[T]),
	}
	n.children[l] = child
	n.order = append(n.order, l)
	return child
}

type labelEntry[T any] struct {
	item      T
	collision bool
}

// Tree maps refs and labels to items of type T.
type Tree[T any] struct {
	root    *Node[T]
	byRef   map[Ref]T
	byLabel map[Label]labelEntry[T]
	refs    []Ref
}

// New returns an empty tree.
func New[T any]() *Tree[T] {
	return &Tree[T]{
		root:    newRoot[T](),
		byRef:   make(map[Ref]T),
		byLabel: make(map[Label]labelEntry[T]),
	}
}

// Root returns the root node.
func (t *Tree[T]) Root() *Node[T] { return t.root }

// Node walks ref from the root and returns the node it names.
func (t *Tree[T]) Node(ref Ref) (*Node[T], bool) {
	node := t.root
	for _, l := range ref.Parts() {
		child, ok := node.children[l]
		if !ok {
			return nil, false
		}
		node = child
	}
	return node, true
}

// Create places a node at ref, creating intermediate nodes as needed, builds
// its item with makeItem and registers it.
func (t *Tree[T]) Create(ref Ref, makeItem func(node *Node[T]) T) T {
	node := t.root
	for _, l := range ref.Parts() {
		if child, ok := node.children[l]; ok {
			node = child
		} else {
			node = node.AddChild(l)
		}
	}
	item := makeItem(node)
	t.Register(node, item)
	return item
}

// Register sets the node's item and indexes it by ref and by label. A second
// item with the same label turns the label into a Collision. Re-registering
// the same node replaces its item.
func (t *Tree[T]) Register(node *Node[T], item T) {
	node.SetItem(item)
	label := node.ref.Last()
	if _, seen := t.byRef[node.ref]; seen {
		t.byRef[node.ref] = item
		if e := t.byLabel[label]; !e.collision {
			t.byLabel[label] = labelEntry[T]{item: item}
		}
		return
	}
	t.byRef[node.ref] = item
	t.refs = append(t.refs, node.ref)
	if _, exists := t.byLabel[label]; exists {
		t.byLabel[label] = labelEntry[T]{collision: true}
	} else {
		t.byLabel[label] = labelEntry[T]{item: item}
	}
}

// ByRef returns the item at exactly ref.
func (t *Tree[T]) ByRef(ref Ref) (T, bool) {
	item, ok := t.byRef[ref]
	return item, ok
}

// ByLabel returns the item carrying label anywhere in the tree. The item is
// only meaningful when the match is Unique.
func (t *Tree[T]) ByLabel(label Label) (T, Match) {
	var zero T
	e, ok := t.byLabel[label]
	switch {
	case !ok:
		return zero, NotFound
	case e.collision:
		return zero, Collision
	default:
		return e.item, Unique
	}
}

// Labels returns every registered label, collisions included.
func (t *Tree[T]) Labels() []Label {
	out := make([]Label, 0, len(t.byLabel))
	for _, ref := range t.refs {
		l := ref.Last()
		if _, ok := t.byLabel[l]; ok && !contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}

func contains(ls []Label, l Label) bool {
	for _, x := range ls {
		if x == l {
			return true
		}
	}
	return false
}

// Items returns all items in registration order.
func (t *Tree[T]) Items() []T {
	out := make([]T, 0, len(t.refs))
	for _, ref := range t.refs {
		out = append(out, t.byRef[ref])
	}
	return out
}

// Len returns the number of registered items.
func (t *Tree[T]) Len() int { return len(t.refs) }

// FirstLevel returns the items attached to the root's direct children.
func (t *Tree[T]) FirstLevel() []T {
	var out []T
	for _, child := range t.root.Children() {
		if item, ok := child.Item(); ok {
			out = append(out, item)
		}
	}
	return out
}

// Dump writes an indented drawing of the tree. describe renders items; nodes
// without items show only their label.
func (t *Tree[T]) Dump(w io.Writer, describe func(T) string) error {
	top := gotree.New(t.root.label.String())
	var add func(parent gotree.Tree, n *Node[T])
	add = func(parent gotree.Tree, n *Node[T]) {
		for _, child := range n.Children() {
			text := child.label.String()
			if item, ok := child.Item(); ok && describe != nil {
				text += " = " + describe(item)
			}
			add(parent.Add(text), child)
		}
	}
	add(top, t.root)
	_, err := io.WriteString(w, top.Print())
	return err
}
