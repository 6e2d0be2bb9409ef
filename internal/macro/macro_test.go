package macro

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark/ast"

	"github.com/mk12/zendown/internal/project"
)

func TestNewDetectsShape(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		fn       any
		arg      bool
		children bool
	}{
		{"plain", Block, func(*Context) (string, error) { return "", nil }, false, false},
		{"arg", Inline, func(*Context, string) (string, error) { return "", nil }, true, false},
		{"children", Block, func(*Context, []ast.Node) (string, error) { return "", nil }, false, true},
		{"full", Block, func(*Context, string, []ast.Node) (string, error) { return "", nil }, true, true},
		{"named", Block, FullFunc(func(*Context, string, []ast.Node) (string, error) { return "", nil }), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.name, tt.kind, tt.fn)
			require.NoError(t, err)
			assert.Equal(t, tt.arg, m.TakesArg)
			assert.Equal(t, tt.children, m.TakesChildren)
		})
	}
}

func TestNewRejects(t *testing.T) {
	_, err := New("bad", Block, func(string) string { return "" })
	assert.ErrorContains(t, err, "unsupported function type")

	_, err = New("bad", Inline, func(*Context, []ast.Node) (string, error) { return "", nil })
	assert.ErrorContains(t, err, "inline macros cannot take children")
}

func TestInvokeChecksCall(t *testing.T) {
	var got []string
	m, err := New("echo", Inline, func(_ *Context, arg string) (string, error) {
		got = append(got, arg)
		return "<" + arg + ">", nil
	})
	require.NoError(t, err)

	out, err := m.Invoke(nil, Call{Name: "echo", Kind: Inline, Arg: "x", HasArg: true})
	require.NoError(t, err)
	assert.Equal(t, "<x>", out)

	out, err = m.Invoke(nil, Call{Name: "echo", Kind: Inline})
	require.NoError(t, err)
	assert.Equal(t, "<>", out)

	_, err = m.Invoke(nil, Call{Name: "echo", Kind: Block})
	assert.ErrorIs(t, err, ErrKindMismatch)
	assert.EqualError(t, err, "echo: wrong macro kind: inline macro used as block")

	plain, err := New("plain", Block, func(*Context) (string, error) { return "", nil })
	require.NoError(t, err)
	_, err = plain.Invoke(nil, Call{Kind: Block, HasArg: true})
	assert.ErrorIs(t, err, ErrUnexpectedArg)
	_, err = plain.Invoke(nil, Call{Kind: Block, HasChildren: true})
	assert.ErrorIs(t, err, ErrUnexpectedChildren)

	assert.Equal(t, []string{"x", ""}, got)
}

func TestInvokeWrapsMacroFailure(t *testing.T) {
	boom := errors.New("boom")
	m, err := New("fail", Block, func(*Context) (string, error) { return "", boom })
	require.NoError(t, err)

	_, err = m.Invoke(nil, Call{Kind: Block})
	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "fail", me.Name)
	assert.ErrorIs(t, err, boom)
	assert.EqualError(t, err, "fail: boom")
}

func TestRegistryLayers(t *testing.T) {
	base := NewRegistry(nil)
	require.NoError(t, base.Register("a", Inline, func(*Context, string) (string, error) { return "base", nil }))
	require.NoError(t, base.Register("b", Block, func(*Context) (string, error) { return "", nil }))

	top := NewRegistry(base)
	require.NoError(t, top.Register("a", Block, func(*Context) (string, error) { return "top", nil }))
	require.NoError(t, top.Register("c", Inline, func(*Context) (string, error) { return "", nil }))

	m, ok := top.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, Block, m.Kind)

	m, ok = base.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, Inline, m.Kind)

	_, ok = top.Lookup("b")
	assert.True(t, ok)
	_, ok = base.Lookup("c")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b", "c"}, top.Names())

	err := top.Register("c", Inline, func(*Context) (string, error) { return "", nil })
	assert.ErrorContains(t, err, "already registered")
}

func TestBuiltins(t *testing.T) {
	r := Builtins()
	assert.Equal(t, []string{"callout", "defs", "include", "note", "pop", "toc", "warning", "yell"}, r.Names())

	m, ok := r.Lookup("include")
	require.True(t, ok)
	assert.Equal(t, Block, m.Kind)
	assert.True(t, m.TakesArg)
	assert.False(t, m.TakesChildren)

	out, err := yell(nil, "a<b")
	require.NoError(t, err)
	assert.Equal(t, "A&lt;B", out)

	assert.NotSame(t, Builtins(), r)
}

func TestForProject(t *testing.T) {
	cfg := project.NewDefaultConfig()
	cfg.ProjectName = "Test"
	cfg.Macros = map[string]project.MacroDef{
		"badge": {Kind: project.MacroKindInline, Template: "<b>{{.Arg}}</b>"},
		"toc":   {Kind: project.MacroKindBlock, Template: "<nav></nav>"},
	}
	r, err := ForProject(project.New(t.TempDir(), cfg, nil))
	require.NoError(t, err)

	m, ok := r.Lookup("badge")
	require.True(t, ok)
	assert.Equal(t, Inline, m.Kind)
	assert.True(t, m.TakesArg)
	assert.False(t, m.TakesChildren)

	m, ok = r.Lookup("toc")
	require.True(t, ok)
	assert.True(t, m.TakesChildren, "project macro overrides the built-in")

	cfg.Macros = map[string]project.MacroDef{"bad": {Kind: project.MacroKindInline, Template: "{{.Arg"}}
	_, err = ForProject(project.New(t.TempDir(), cfg, nil))
	assert.ErrorContains(t, err, "macro bad")
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("block")
	require.NoError(t, err)
	assert.Equal(t, Block, k)
	assert.Equal(t, "inline", Inline.String())

	_, err = ParseKind("span")
	assert.Error(t, err)
}
