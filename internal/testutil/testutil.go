// Package testutil provides shared test helpers for model directories and
// journal databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/modeltree/internal/journal"
	"github.com/starford/modeltree/internal/storage"
)

// Journal creates a temporary SQLite journal that is automatically cleaned up.
func Journal(t *testing.T) *journal.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "modeltree-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := journal.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// ModelDir writes files (relative path -> content) into a temporary
// directory and returns the directory with a storage.Provider over it.
func ModelDir(t *testing.T, files map[string]string) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		WriteFile(t, dir, name, content)
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// WriteFile writes one file below dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// SampleModels is a small tree with a shared internal node and a shared
// leaf:
//
//	R -> [A, S, S]
//	A -> [S, L]
//	S -> [L]
var SampleModels = map[string]string{
	"root.yaml": "name: R\nchildren: [A, S, S]\n",
	"a.yaml":    "name: A\nchildren: [S, L]\n",
	"s.json":    `{"name": "S", "children": ["L"]}`,
	"l.yml":     "name: L\nalgorithm: sum\n",
}
