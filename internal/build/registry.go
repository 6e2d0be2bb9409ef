package build

import "fmt"

// Targets returns every build target in listing order.
func Targets() []Target {
	return []Target{NewHTML(), NewPage(), NewLinks()}
}

// Lookup returns the target called name.
func Lookup(name string) (Target, error) {
	for _, t := range Targets() {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, name)
}
