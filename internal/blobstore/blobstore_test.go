package blobstore_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"docbatch/internal/blobstore"
)

// objectServer is a minimal in-memory object gateway.
type objectServer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *objectServer) get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.blobs[key])
}

func newObjectServer(t *testing.T) (*objectServer, *httptest.Server) {
	t.Helper()
	s := &objectServer{blobs: map[string][]byte{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodHead, http.MethodGet:
			data, ok := s.blobs[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if r.Method == http.MethodGet {
				_, _ = w.Write(data)
			}
		case http.MethodPut:
			data, _ := io.ReadAll(r.Body)
			s.blobs[r.URL.Path] = data
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(server.Close)
	return s, server
}

func TestLocalRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocal()
	path := filepath.Join(t.TempDir(), "out", "a.jsonl")

	ok, err := store.Exists(ctx, path)
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	if _, err := store.Read(ctx, path); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Write(ctx, path, []byte("{}\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err = store.Exists(ctx, path)
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
	data, err := store.Read(ctx, path)
	if err != nil || string(data) != "{}\n" {
		t.Fatalf("Read = %q, %v", data, err)
	}
}

func TestHTTPRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, server := newObjectServer(t)
	store := blobstore.NewHTTP(blobstore.HTTPConfig{}, blobstore.WithHTTPClient(server.Client()))
	url := server.URL + "/bucket/result/a.jsonl"

	ok, err := store.Exists(ctx, url)
	if err != nil || ok {
		t.Fatalf("Exists before write = %v, %v", ok, err)
	}
	if _, err := store.Read(ctx, url); !errors.Is(err, blobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Write(ctx, url, []byte("line\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err = store.Exists(ctx, url)
	if err != nil || !ok {
		t.Fatalf("Exists after write = %v, %v", ok, err)
	}
	data, err := store.Read(ctx, url)
	if err != nil || string(data) != "line\n" {
		t.Fatalf("Read = %q, %v", data, err)
	}
}

func TestHTTPServerErrorIsNotAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	store := blobstore.NewHTTP(blobstore.HTTPConfig{}, blobstore.WithHTTPClient(server.Client()))
	if _, err := store.Exists(context.Background(), server.URL+"/x"); err == nil {
		t.Fatal("expected 503 to surface as an error")
	}
	if err := store.Write(context.Background(), server.URL+"/x", []byte("a")); err == nil {
		t.Fatal("expected write failure")
	}
}

func TestRouterDispatchesByScheme(t *testing.T) {
	ctx := context.Background()
	objects, server := newObjectServer(t)
	router := blobstore.NewRouter(blobstore.WithHTTP(blobstore.NewHTTP(blobstore.HTTPConfig{}, blobstore.WithHTTPClient(server.Client()))))

	dir := t.TempDir()
	if err := router.Write(ctx, "file://"+filepath.Join(dir, "a.jsonl"), []byte("local")); err != nil {
		t.Fatalf("file write: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.jsonl")); err != nil {
		t.Fatalf("expected local file: %v", err)
	}
	if err := router.Write(ctx, server.URL+"/r/a.jsonl", []byte("remote")); err != nil {
		t.Fatalf("http write: %v", err)
	}
	if got := objects.get("/r/a.jsonl"); got != "remote" {
		t.Fatalf("expected remote blob, got %q", got)
	}
	if _, err := router.Exists(ctx, "s3://bucket/key"); err == nil || !strings.Contains(err.Error(), "unsupported scheme") {
		t.Fatalf("expected unsupported scheme error, got %v", err)
	}
	if _, err := router.Read(ctx, "  "); err == nil {
		t.Fatal("expected empty location error")
	}
}

func TestJoinAndBase(t *testing.T) {
	tests := []struct {
		root, name, want string
	}{
		{"http://store/out/", "a.jsonl", "http://store/out/a.jsonl"},
		{"http://store/out", "/a.jsonl", "http://store/out/a.jsonl"},
		{"/data/out", "a.jsonl", filepath.Join("/data/out", "a.jsonl")},
	}
	for _, tc := range tests {
		if got := blobstore.Join(tc.root, tc.name); got != tc.want {
			t.Errorf("Join(%q,%q) = %q, want %q", tc.root, tc.name, got, tc.want)
		}
	}
	if got := blobstore.Base("http://store/in/shard-01.jsonl"); got != "shard-01.jsonl" {
		t.Errorf("Base url = %q", got)
	}
	if got := blobstore.Base("/data/in/shard-02.jsonl"); got != "shard-02.jsonl" {
		t.Errorf("Base path = %q", got)
	}
	dirs := []struct{ in, want string }{
		{"http://store/out/layoutV5/result/a.jsonl", "http://store/out/layoutV5/result"},
		{"http://store", "http://store"},
		{"/data/in/a.jsonl", "/data/in"},
	}
	for _, tc := range dirs {
		if got := blobstore.Dir(tc.in); got != tc.want {
			t.Errorf("Dir(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
