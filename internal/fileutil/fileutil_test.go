package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicCreatesParentsAndReplaces(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "out", "a.jsonl")

	if err := WriteAtomic(dst, []byte("first"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(dst, []byte("second"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second" {
		t.Fatalf("content mismatch: got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(dst))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be gone, found %d entries", len(entries))
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{file, true},
		{filepath.Join(dir, "missing.txt"), false},
		{dir, false},
	}
	for _, tc := range tests {
		got, err := Exists(tc.path)
		if err != nil {
			t.Fatalf("Exists(%q) error: %v", tc.path, err)
		}
		if got != tc.want {
			t.Errorf("Exists(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}
