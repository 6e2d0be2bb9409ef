// Package testutil provides shared test helpers for setting up projects and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mk12/zendown/internal/index"
)

// DefaultConfig is the zendown.yml written by WriteProject unless the files
// provide their own.
const DefaultConfig = "project_name: Test\n"

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// WriteProject creates a temporary project directory holding files, keyed by
// slash-separated path relative to the root, and returns the root.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	if _, ok := files["zendown.yml"]; !ok {
		WriteFile(t, root, "zendown.yml", DefaultConfig)
	}
	if err := os.MkdirAll(filepath.Join(root, "content"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, data := range files {
		WriteFile(t, root, name, data)
	}
	return root
}

// WriteFile writes data to root/name, creating parent directories.
func WriteFile(t *testing.T, root, name, data string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
}
