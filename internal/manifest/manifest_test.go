package manifest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docbatch/internal/blobstore"
	"docbatch/internal/manifest"
	"docbatch/internal/services"
)

func TestLoadListFile(t *testing.T) {
	dir := t.TempDir()
	list := filepath.Join(dir, "list.txt")
	content := "# shards\nhttp://store/in/a.jsonl\n\n  /data/in/b.jsonl  \nhttp://store/in/a.jsonl\n"
	if err := os.WriteFile(list, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := manifest.Load(context.Background(), blobstore.NewLocal(), list)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []manifest.WorkItem{
		{ID: "a.jsonl", SourcePath: "http://store/in/a.jsonl"},
		{ID: "b.jsonl", SourcePath: "/data/in/b.jsonl"},
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %+v", len(want), items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestLoadSingleJSONL(t *testing.T) {
	items, err := manifest.Load(context.Background(), blobstore.NewLocal(), "http://store/in/part-0001.jsonl")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(items) != 1 || items[0].ID != "part-0001.jsonl" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestLoadRejectsDirectory(t *testing.T) {
	_, err := manifest.Load(context.Background(), blobstore.NewLocal(), t.TempDir())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadMissingList(t *testing.T) {
	_, err := manifest.Load(context.Background(), blobstore.NewLocal(), filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestParseRejectsCollidingNames(t *testing.T) {
	_, err := manifest.Parse([]byte("/a/x.jsonl\n/b/x.jsonl\n"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected collision error, got %v", err)
	}
}
