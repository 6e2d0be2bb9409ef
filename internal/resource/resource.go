// Package resource drives the staged load, parse, resolve lifecycle shared by
// every file-backed resource (articles, assets, includes).
package resource

import (
	"errors"
	"fmt"
	"log/slog"
)

// Stage is a point in a resource's lifecycle. Stages are strictly ordered.
type Stage int

const (
	Unloaded Stage = iota
	Loaded
	Parsed
	Resolved
)

func (s Stage) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Parsed:
		return "parsed"
	case Resolved:
		return "resolved"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ErrPrecondition is returned when a stage is requested before the stage it
// depends on has completed.
var ErrPrecondition = errors.New("stage precondition not met")

// Loader is implemented by resources with a load stage.
type Loader interface {
	Load() error
	Unload()
}

// Parser is implemented by resources with a parse stage.
type Parser interface {
	Parse() error
	Unparse()
}

// Resolver is implemented by resources with a resolve stage. P is the
// context needed for resolution, typically the project.
type Resolver[P any] interface {
	Resolve(P) error
	Unresolve()
}

// Lifecycle tracks the stage of one resource and runs its hooks. Stages the
// hooks do not implement complete trivially.
type Lifecycle[P any] struct {
	kind   string
	id     func() string
	path   string
	hooks  any
	stage  Stage
	logger *slog.Logger
}

// New returns a lifecycle in the Unloaded stage. id reports the resource's
// ref for log messages.
func New[P any](kind string, id func() string, path string, hooks any, logger *slog.Logger) *Lifecycle[P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle[P]{kind: kind, id: id, path: path, hooks: hooks, logger: logger}
}

// Stage returns the current stage.
func (l *Lifecycle[P]) Stage() Stage { return l.stage }

func (l *Lifecycle[P]) attrs() []any {
	return []any{
		slog.String("kind", l.kind),
		slog.String("ref", l.id()),
		slog.String("path", l.path),
	}
}

// Load reads the resource from disk, discarding any earlier state.
func (l *Lifecycle[P]) Load() error {
	l.logger.Info("loading "+l.kind, l.attrs()...)
	l.Unload()
	if h, ok := l.hooks.(Loader); ok {
		if err := h.Load(); err != nil {
			return fmt.Errorf("load %s %s: %w", l.kind, l.id(), err)
		}
	}
	l.stage = Loaded
	return nil
}

// Unload resets to Unloaded. Parse and resolve state go with it.
func (l *Lifecycle[P]) Unload() {
	if l.stage == Unloaded {
		return
	}
	l.logger.Debug("reset "+l.kind+" to pre-load", l.attrs()...)
	l.Unparse()
	if h, ok := l.hooks.(Loader); ok {
		h.Unload()
	}
	l.stage = Unloaded
}

// EnsureLoaded loads the resource unless it is already loaded.
func (l *Lifecycle[P]) EnsureLoaded() error {
	if l.stage >= Loaded {
		return nil
	}
	return l.Load()
}

// Parse parses the loaded resource. It fails if the resource is not loaded.
func (l *Lifecycle[P]) Parse() error {
	if l.stage < Loaded {
		return fmt.Errorf("parse %s %s: %w: not loaded", l.kind, l.id(), ErrPrecondition)
	}
	if l.stage >= Parsed {
		return nil
	}
	l.logger.Info("parsing "+l.kind, l.attrs()...)
	if h, ok := l.hooks.(Parser); ok {
		if err := h.Parse(); err != nil {
			return fmt.Errorf("parse %s %s: %w", l.kind, l.id(), err)
		}
	}
	l.stage = Parsed
	return nil
}

// Unparse resets to Loaded, discarding parse and resolve state.
func (l *Lifecycle[P]) Unparse() {
	if l.stage < Parsed {
		return
	}
	l.logger.Debug("reset "+l.kind+" to pre-parse", l.attrs()...)
	l.Unresolve()
	if h, ok := l.hooks.(Parser); ok {
		h.Unparse()
	}
	l.stage = Loaded
}

// EnsureParsed loads and parses as needed.
func (l *Lifecycle[P]) EnsureParsed() error {
	if l.stage >= Parsed {
		return nil
	}
	if err := l.EnsureLoaded(); err != nil {
		return err
	}
	return l.Parse()
}

// Resolve resolves the parsed resource against p. It fails if the resource
// is not parsed.
func (l *Lifecycle[P]) Resolve(p P) error {
	if l.stage < Parsed {
		return fmt.Errorf("resolve %s %s: %w: not parsed", l.kind, l.id(), ErrPrecondition)
	}
	if l.stage >= Resolved {
		return nil
	}
	l.logger.Info("resolving "+l.kind, l.attrs()...)
	if h, ok := l.hooks.(Resolver[P]); ok {
		if err := h.Resolve(p); err != nil {
			return fmt.Errorf("resolve %s %s: %w", l.kind, l.id(), err)
		}
	}
	l.stage = Resolved
	return nil
}

// Unresolve resets to Parsed, discarding resolve state.
func (l *Lifecycle[P]) Unresolve() {
	if l.stage < Resolved {
		return
	}
	l.logger.Debug("reset "+l.kind+" to pre-resolve", l.attrs()...)
	if h, ok := l.hooks.(Resolver[P]); ok {
		h.Unresolve()
	}
	l.stage = Parsed
}

// EnsureResolved loads, parses and resolves as needed.
func (l *Lifecycle[P]) EnsureResolved(p P) error {
	if l.stage >= Resolved {
		return nil
	}
	if err := l.EnsureParsed(); err != nil {
		return err
	}
	return l.Resolve(p)
}
