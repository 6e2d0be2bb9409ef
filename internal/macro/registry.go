package macro

import (
	"fmt"
	"sort"

	"github.com/mk12/zendown/internal/project"
)

// Registry maps names to macros. A registry may sit on top of a parent whose
// macros it extends or overrides.
type Registry struct {
	parent *Registry
	macros map[string]*Macro
}

// NewRegistry returns an empty registry layered on parent, which may be nil.
func NewRegistry(parent *Registry) *Registry {
	return &Registry{parent: parent, macros: make(map[string]*Macro)}
}

// Register adds a macro built from fn. Names must be unique within a layer.
func (r *Registry) Register(name string, kind Kind, fn any) error {
	if _, ok := r.macros[name]; ok {
		return fmt.Errorf("macro %s: already registered", name)
	}
	m, err := New(name, kind, fn)
	if err != nil {
		return err
	}
	r.macros[name] = m
	return nil
}

func (r *Registry) mustRegister(name string, kind Kind, fn any) {
	if err := r.Register(name, kind, fn); err != nil {
		panic(err)
	}
}

// Lookup finds a macro in this layer or, failing that, its parents.
func (r *Registry) Lookup(name string) (*Macro, bool) {
	for l := r; l != nil; l = l.parent {
		if m, ok := l.macros[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// Names returns the names visible through r, sorted.
func (r *Registry) Names() []string {
	seen := make(map[string]struct{})
	for l := r; l != nil; l = l.parent {
		for name := range l.macros {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForProject returns the built-in macros overlaid with the macros declared in
// the project config.
func ForProject(p *project.Project) (*Registry, error) {
	r := NewRegistry(Builtins())
	for _, name := range sortedNames(p.Macros()) {
		def := p.Macros()[name]
		if err := registerTemplate(r, name, def); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func sortedNames(m map[string]project.MacroDef) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
