// Package testutil provides shared test helpers for setting up projects and databases.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/frontedit/internal/index"
	"github.com/starford/frontedit/internal/storage"
)

// TestDB opens an index database in a temporary directory. It is closed when
// the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "frontedit-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestProject creates a temporary project directory holding files, keyed by
// slash path, and returns it with a storage provider rooted there.
func TestProject(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	for p, content := range files {
		if err := store.Write(p, []byte(content)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	return root, store
}
