// Package macro implements ZFM macros: named functions invoked from article
// text as @name or @name{arg}, inline or as blocks with a quoted body.
package macro

import (
	"errors"
	"fmt"

	"github.com/yuin/goldmark/ast"
)

// Kind is where a macro may be invoked.
type Kind int

const (
	// Inline macros appear in running text.
	Inline Kind = iota
	// Block macros occupy a whole line and may take a blockquote body.
	Block
)

func (k Kind) String() string {
	if k == Block {
		return "block"
	}
	return "inline"
}

// ParseKind parses "inline" or "block".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "inline":
		return Inline, nil
	case "block":
		return Block, nil
	}
	return 0, fmt.Errorf("unknown macro kind %q", s)
}

// Macro function shapes. The shape decides whether a macro accepts an
// argument, a body of children, or both.
type (
	PlainFunc    func(ctx *Context) (string, error)
	ArgFunc      func(ctx *Context, arg string) (string, error)
	ChildrenFunc func(ctx *Context, children []ast.Node) (string, error)
	FullFunc     func(ctx *Context, arg string, children []ast.Node) (string, error)
)

// Macro is a registered macro.
type Macro struct {
	Name          string
	Kind          Kind
	TakesArg      bool
	TakesChildren bool

	call FullFunc
}

// New wraps fn, which must have one of the four function shapes.
func New(name string, kind Kind, fn any) (*Macro, error) {
	m := &Macro{Name: name, Kind: kind}
	switch f := fn.(type) {
	case func(*Context) (string, error):
		m.call = func(ctx *Context, _ string, _ []ast.Node) (string, error) { return f(ctx) }
	case PlainFunc:
		m.call = func(ctx *Context, _ string, _ []ast.Node) (string, error) { return f(ctx) }
	case func(*Context, string) (string, error):
		m.TakesArg = true
		m.call = func(ctx *Context, arg string, _ []ast.Node) (string, error) { return f(ctx, arg) }
	case ArgFunc:
		m.TakesArg = true
		m.call = func(ctx *Context, arg string, _ []ast.Node) (string, error) { return f(ctx, arg) }
	case func(*Context, []ast.Node) (string, error):
		m.TakesChildren = true
		m.call = func(ctx *Context, _ string, children []ast.Node) (string, error) { return f(ctx, children) }
	case ChildrenFunc:
		m.TakesChildren = true
		m.call = func(ctx *Context, _ string, children []ast.Node) (string, error) { return f(ctx, children) }
	case func(*Context, string, []ast.Node) (string, error):
		m.TakesArg, m.TakesChildren = true, true
		m.call = f
	case FullFunc:
		m.TakesArg, m.TakesChildren = true, true
		m.call = f
	default:
		return nil, fmt.Errorf("macro %s: unsupported function type %T", name, fn)
	}
	if kind == Inline && m.TakesChildren {
		return nil, fmt.Errorf("macro %s: inline macros cannot take children", name)
	}
	return m, nil
}

// Call is one invocation of a macro found in a document.
type Call struct {
	Name        string
	Kind        Kind
	Arg         string
	HasArg      bool
	Children    []ast.Node
	HasChildren bool
}

// Invoke checks the call against what m accepts and runs it.
func (m *Macro) Invoke(ctx *Context, c Call) (string, error) {
	switch {
	case c.Kind != m.Kind:
		return "", &Error{Name: m.Name, Err: fmt.Errorf("%w: %s macro used as %s", ErrKindMismatch, m.Kind, c.Kind)}
	case c.HasArg && !m.TakesArg:
		return "", &Error{Name: m.Name, Err: ErrUnexpectedArg}
	case c.HasChildren && !m.TakesChildren:
		return "", &Error{Name: m.Name, Err: ErrUnexpectedChildren}
	}
	out, err := m.call(ctx, c.Arg, c.Children)
	if err != nil {
		var me *Error
		if errors.As(err, &me) {
			return "", err
		}
		return "", &Error{Name: m.Name, Err: err}
	}
	return out, nil
}

// Macro errors. Each is wrapped in an *Error naming the macro.
var (
	ErrUndefined          = errors.New("undefined macro")
	ErrKindMismatch       = errors.New("wrong macro kind")
	ErrUnexpectedArg      = errors.New("unexpected argument")
	ErrUnexpectedChildren = errors.New("unexpected children")
	ErrMissingArg         = errors.New("missing argument")
	ErrMissingChildren    = errors.New("missing children")
)

// Error is a failed macro invocation.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string { return e.Name + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }
