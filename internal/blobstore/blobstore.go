package blobstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Read when no blob exists at the location.
var ErrNotFound = errors.New("blob not found")

// Store is the storage surface used by the job driver.
type Store interface {
	Exists(ctx context.Context, location string) (bool, error)
	Read(ctx context.Context, location string) ([]byte, error)
	Write(ctx context.Context, location string, data []byte) error
}

// Router dispatches each location to the local or HTTP backend by scheme.
type Router struct {
	local Store
	http  Store
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithLocal replaces the backend used for local paths and file:// URLs.
func WithLocal(store Store) RouterOption {
	return func(r *Router) {
		if store != nil {
			r.local = store
		}
	}
}

// WithHTTP replaces the backend used for http(s) URLs.
func WithHTTP(store Store) RouterOption {
	return func(r *Router) {
		if store != nil {
			r.http = store
		}
	}
}

// NewRouter constructs a Router with default local and HTTP backends.
func NewRouter(opts ...RouterOption) *Router {
	r := &Router{local: NewLocal(), http: NewHTTP(HTTPConfig{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Exists(ctx context.Context, location string) (bool, error) {
	store, loc, err := r.route(location)
	if err != nil {
		return false, err
	}
	return store.Exists(ctx, loc)
}

func (r *Router) Read(ctx context.Context, location string) ([]byte, error) {
	store, loc, err := r.route(location)
	if err != nil {
		return nil, err
	}
	return store.Read(ctx, loc)
}

func (r *Router) Write(ctx context.Context, location string, data []byte) error {
	store, loc, err := r.route(location)
	if err != nil {
		return err
	}
	return store.Write(ctx, loc, data)
}

func (r *Router) route(location string) (Store, string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, "", errors.New("blobstore: empty location")
	}
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		return r.local, location, nil
	}
	switch strings.ToLower(scheme) {
	case "file":
		return r.local, rest, nil
	case "http", "https":
		return r.http, location, nil
	default:
		return nil, "", fmt.Errorf("blobstore: unsupported scheme %q in %q", scheme, location)
	}
}

// Join appends name to root. URL roots are joined with a single slash; local
// roots use the platform separator.
func Join(root, name string) string {
	name = strings.TrimLeft(name, "/")
	if strings.Contains(root, "://") {
		return strings.TrimRight(root, "/") + "/" + name
	}
	return filepath.Join(root, name)
}

// Base returns the last element of a location, for both URLs and paths.
func Base(location string) string {
	location = strings.TrimRight(location, "/")
	if idx := strings.LastIndex(location, "/"); idx >= 0 {
		return location[idx+1:]
	}
	return filepath.Base(location)
}

// Dir returns the parent of a location, for both URLs and paths.
func Dir(location string) string {
	if strings.Contains(location, "://") {
		location = strings.TrimRight(location, "/")
		if idx := strings.LastIndex(location, "/"); idx >= 0 && !strings.HasSuffix(location[:idx], ":/") {
			return location[:idx]
		}
		return location
	}
	return filepath.Dir(location)
}
