// package storage opens revision binaries from the local filesystem, HTTP or an S3-compatible bucket
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/desertthunder/ytpub/internal/shared"
)

// Asset is an opened binary. Callers must close Body.
type Asset struct {
	Name string
	Size int64
	Body io.ReadCloser
}

// Store opens assets by URL.
type Store interface {
	Open(ctx context.Context, rawURL string) (*Asset, error)
}

// Writer is a [Store] that can also receive new assets, returning the URL they can be opened by.
type Writer interface {
	Store
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// Router dispatches to a backend by URL scheme. URLs without a scheme go to the default backend.
type Router struct {
	backends map[string]Store
	fallback Store
}

// NewRouter creates a [Router] whose scheme-less URLs resolve against fallback.
func NewRouter(fallback Store) *Router {
	return &Router{backends: map[string]Store{}, fallback: fallback}
}

// Handle registers backend for each scheme.
func (r *Router) Handle(backend Store, schemes ...string) *Router {
	for _, s := range schemes {
		r.backends[s] = backend
	}
	return r
}

// Open implements [Store].
func (r *Router) Open(ctx context.Context, rawURL string) (*Asset, error) {
	scheme := schemeOf(rawURL)
	if scheme == "" {
		if r.fallback == nil {
			return nil, fmt.Errorf("%w: no store for %q", shared.ErrInvalidAsset, rawURL)
		}
		return r.fallback.Open(ctx, rawURL)
	}

	backend, ok := r.backends[scheme]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", shared.ErrInvalidAsset, scheme)
	}
	return backend.Open(ctx, rawURL)
}

// Put stores through the fallback backend when it is a [Writer].
func (r *Router) Put(ctx context.Context, name string, body io.Reader, size int64) (string, error) {
	w, ok := r.fallback.(Writer)
	if !ok {
		return "", fmt.Errorf("%w: default store is read-only", shared.ErrInvalidConfig)
	}
	return w.Put(ctx, name, body, size)
}

// New builds the [Router] described by cfg. The filesystem and HTTP backends are always
// available; S3 is added when a bucket is configured.
func New(cfg shared.StorageConfig) (*Router, error) {
	fs := NewFSStore(cfg.Root)
	web := NewHTTPStore(nil)

	var s3 *S3Store
	if cfg.S3.Bucket != "" && cfg.S3.Endpoint != "" {
		var err error
		if s3, err = NewS3Store(cfg.S3); err != nil {
			return nil, err
		}
	}

	var fallback Store
	switch cfg.Kind {
	case "", "fs":
		fallback = fs
	case "http":
		fallback = web
	case "s3":
		if s3 == nil {
			return nil, fmt.Errorf("%w: storage kind s3 needs storage.s3.endpoint and bucket", shared.ErrInvalidConfig)
		}
		fallback = s3
	default:
		return nil, fmt.Errorf("%w: unknown storage kind %q", shared.ErrInvalidConfig, cfg.Kind)
	}

	router := NewRouter(fallback).Handle(fs, "file").Handle(web, "http", "https")
	if s3 != nil {
		router.Handle(s3, "s3")
	}
	return router, nil
}

func schemeOf(rawURL string) string {
	i := strings.Index(rawURL, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(rawURL[:i])
}

// baseName returns the last path segment of rawURL, without query or fragment.
func baseName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}
