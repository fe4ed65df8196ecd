package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/modeltree/internal/checksum"
)

func tempModels(t *testing.T, files map[string]string) *FS {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestRead(t *testing.T) {
	s := tempModels(t, map[string]string{"root.json": `{"name":"root"}`})
	got, err := s.Read("root.json")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != `{"name":"root"}` {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestList_FiltersAndSorts(t *testing.T) {
	s := tempModels(t, map[string]string{
		"b.yaml":          "name: b",
		"a.json":          "{}",
		"sub/c.yml":       "name: c",
		"readme.md":       "not a model",
		".hidden.json":    "{}",
		".git/config.yml": "x: y",
	})

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var paths []string
	for _, it := range items {
		paths = append(paths, it.Path)
	}
	want := []string{"a.json", "b.yaml", "sub/c.yml"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
	if items[0].Checksum != checksum.Sum([]byte("{}")) {
		t.Errorf("checksum = %q", items[0].Checksum)
	}
}

func TestIsModelFile(t *testing.T) {
	cases := map[string]bool{
		"a.json": true,
		"a.YAML": true,
		"a.yml":  true,
		"a.md":   false,
		"json":   false,
	}
	for name, want := range cases {
		if got := IsModelFile(name); got != want {
			t.Errorf("IsModelFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempModels(t, nil)

	cases := []string{
		"../../etc/passwd",
		"../outside.json",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
	}
	if _, err := s.List("../"); err == nil {
		t.Error("expected error listing outside root")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS("/tmp/modeltree-does-not-exist-" + t.Name())
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "modeltree-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when root is a file")
	}
}
