package resource

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fake struct {
	calls []string
	fail  string
}

func (f *fake) record(s string) error {
	f.calls = append(f.calls, s)
	if s == f.fail {
		return errors.New(s + " failed")
	}
	return nil
}

func (f *fake) Load() error          { return f.record("load") }
func (f *fake) Unload()              { _ = f.record("unload") }
func (f *fake) Parse() error         { return f.record("parse") }
func (f *fake) Unparse()             { _ = f.record("unparse") }
func (f *fake) Resolve(string) error { return f.record("resolve") }
func (f *fake) Unresolve()           { _ = f.record("unresolve") }

func newFake(t *testing.T) (*fake, *Lifecycle[string], *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f := &fake{}
	return f, New[string]("thing", func() string { return "/a" }, "a.md", f, logger), &logs
}

func TestEnsureResolvedRunsAllStages(t *testing.T) {
	f, l, _ := newFake(t)
	require.NoError(t, l.EnsureResolved("proj"))
	assert.Equal(t, Resolved, l.Stage())
	assert.Equal(t, []string{"load", "parse", "resolve"}, f.calls)
}

func TestEnsureIsIdempotent(t *testing.T) {
	f, l, logs := newFake(t)
	require.NoError(t, l.EnsureResolved("proj"))
	before := logs.Len()
	require.NoError(t, l.EnsureResolved("proj"))
	require.NoError(t, l.EnsureParsed())
	require.NoError(t, l.EnsureLoaded())
	assert.Equal(t, []string{"load", "parse", "resolve"}, f.calls)
	assert.Equal(t, before, logs.Len(), "no extra log output on repeated ensure")
}

func TestResolveBeforeLoadFails(t *testing.T) {
	f, l, _ := newFake(t)
	err := l.Resolve("proj")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Empty(t, f.calls)
	assert.Equal(t, Unloaded, l.Stage())

	err = l.Parse()
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestUnloadCascades(t *testing.T) {
	f, l, _ := newFake(t)
	require.NoError(t, l.EnsureResolved("proj"))
	f.calls = nil

	l.Unload()
	assert.Equal(t, Unloaded, l.Stage())
	assert.Equal(t, []string{"unresolve", "unparse", "unload"}, f.calls)

	f.calls = nil
	l.Unload()
	assert.Empty(t, f.calls, "unload of an unloaded resource is a no-op")
}

func TestUnparseKeepsLoad(t *testing.T) {
	f, l, _ := newFake(t)
	require.NoError(t, l.EnsureResolved("proj"))
	f.calls = nil
	l.Unparse()
	assert.Equal(t, Loaded, l.Stage())
	assert.Equal(t, []string{"unresolve", "unparse"}, f.calls)
}

func TestLoadForcesReload(t *testing.T) {
	f, l, _ := newFake(t)
	require.NoError(t, l.EnsureParsed())
	f.calls = nil
	require.NoError(t, l.Load())
	assert.Equal(t, []string{"unparse", "unload", "load"}, f.calls)
	assert.Equal(t, Loaded, l.Stage())
}

func TestFailedStageDoesNotAdvance(t *testing.T) {
	f, l, _ := newFake(t)
	f.fail = "parse"
	err := l.EnsureParsed()
	require.Error(t, err)
	assert.Equal(t, Loaded, l.Stage())
}

type noHooks struct{}

func TestMissingHooksCompleteTrivially(t *testing.T) {
	l := New[string]("asset", func() string { return "/img" }, "img.png", noHooks{}, nil)
	require.NoError(t, l.EnsureResolved("proj"))
	assert.Equal(t, Resolved, l.Stage())
}
