package checksum

import "testing"

func TestSum(t *testing.T) {
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %q, want %q", got, empty)
	}
}

func TestDirectory(t *testing.T) {
	a := Directory(map[string]string{"a.json": "1", "b.json": "2"})
	b := Directory(map[string]string{"b.json": "2", "a.json": "1"})
	if a != b {
		t.Error("digest depends on map order")
	}
	if c := Directory(map[string]string{"a.json": "1", "b.json": "3"}); c == a {
		t.Error("changed content produced the same digest")
	}
	if d := Directory(map[string]string{"a.json1": "", "b.json": "2"}); d == a {
		t.Error("path/content boundary is ambiguous")
	}
}
