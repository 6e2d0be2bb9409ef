// Package storage defines the build output tree that builders write into.
package storage

import "time"

// Entry describes one file in the output tree.
type Entry struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// Provider is the interface for output tree operations. Paths are
// slash-separated and relative to the output root.
type Provider interface {
	// List returns every file under dir.
	List(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path. It reports whether the file
	// changed.
	Write(path string, content []byte) (bool, error)
	// Copy atomically copies the file at src, an absolute path outside the
	// tree, to path.
	Copy(src, path string) (bool, error)
	// Delete removes the file at path.
	Delete(path string) error
	// Root returns the absolute path of the output root.
	Root() string
}
