package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ytpub/internal/shared"
)

func readAll(t *testing.T, a *Asset) []byte {
	t.Helper()
	defer a.Body.Close()
	data, err := io.ReadAll(a.Body)
	require.NoError(t, err)
	return data
}

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "clip.mp4"), []byte("video"), 0644))
	store := NewFSStore(root)

	t.Run("opens paths relative to the root", func(t *testing.T) {
		a, err := store.Open(ctx, "clip.mp4")
		require.NoError(t, err)
		assert.Equal(t, "clip.mp4", a.Name)
		assert.Equal(t, int64(5), a.Size)
		assert.Equal(t, []byte("video"), readAll(t, a))
	})

	t.Run("opens file URLs", func(t *testing.T) {
		a, err := store.Open(ctx, "file://"+filepath.ToSlash(filepath.Join(root, "clip.mp4")))
		require.NoError(t, err)
		assert.Equal(t, []byte("video"), readAll(t, a))
	})

	t.Run("missing files are invalid assets", func(t *testing.T) {
		_, err := store.Open(ctx, "missing.mp4")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})

	t.Run("directories are invalid assets", func(t *testing.T) {
		_, err := store.Open(ctx, root)
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})

	t.Run("relative paths cannot escape the root", func(t *testing.T) {
		_, err := store.Open(ctx, "../outside.mp4")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})

	t.Run("Put writes under the root and returns an openable URL", func(t *testing.T) {
		u, err := store.Put(ctx, "/some/dir/upload.mov", strings.NewReader("payload"), 7)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u, "file://"), u)
		assert.True(t, strings.HasSuffix(u, "-upload.mov"), u)

		a, err := store.Open(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), readAll(t, a))
	})
}

func TestHTTPStore(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media/talk.webm":
			w.Header().Set("Content-Length", "4")
			w.Write([]byte("webm"))
		case "/stream.mp4":
			w.(http.Flusher).Flush()
			w.Write([]byte("chunked"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	store := NewHTTPStore(srv.Client())

	t.Run("streams the body with its length and name", func(t *testing.T) {
		a, err := store.Open(ctx, srv.URL+"/media/talk.webm?sig=abc")
		require.NoError(t, err)
		assert.Equal(t, "talk.webm", a.Name)
		assert.Equal(t, int64(4), a.Size)
		assert.Equal(t, []byte("webm"), readAll(t, a))
	})

	t.Run("error statuses are invalid assets", func(t *testing.T) {
		_, err := store.Open(ctx, srv.URL+"/missing.mp4")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})

	t.Run("unknown lengths are invalid assets", func(t *testing.T) {
		_, err := store.Open(ctx, srv.URL+"/stream.mp4")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})
}

// fakeS3 serves HEAD and GET for objects under /bucket/key.
func fakeS3(t *testing.T, objects map[string][]byte) *httptest.Server {
	t.Helper()
	modified := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := objects[strings.TrimPrefix(r.URL.Path, "/")]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>not found</Message></Error>`)
			}
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(data)))
		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("ETag", `"etag-1"`)
		w.Header().Set("Last-Modified", modified)
		if r.Method == http.MethodHead {
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	srv := fakeS3(t, map[string][]byte{
		"revisions/task-1/final.mp4": []byte("s3 video"),
		"archive/old.mov":            []byte("old"),
	})
	store, err := NewS3Store(shared.S3Config{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		Bucket:    "revisions",
		AccessKey: "access",
		SecretKey: "secret",
	})
	require.NoError(t, err)

	t.Run("opens bare keys in the configured bucket", func(t *testing.T) {
		a, err := store.Open(ctx, "task-1/final.mp4")
		require.NoError(t, err)
		assert.Equal(t, "final.mp4", a.Name)
		assert.Equal(t, int64(8), a.Size)
		assert.Equal(t, []byte("s3 video"), readAll(t, a))
	})

	t.Run("opens s3 URLs in other buckets", func(t *testing.T) {
		a, err := store.Open(ctx, "s3://archive/old.mov")
		require.NoError(t, err)
		assert.Equal(t, int64(3), a.Size)
		assert.Equal(t, []byte("old"), readAll(t, a))
	})

	t.Run("missing objects are invalid assets", func(t *testing.T) {
		_, err := store.Open(ctx, "s3://revisions/missing.mp4")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})

	t.Run("URLs without a key are invalid assets", func(t *testing.T) {
		_, err := store.Open(ctx, "s3://revisions")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})
}

func TestRouter(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.mp4"), []byte("fs"), 0644))

	t.Run("scheme-less URLs use the configured kind", func(t *testing.T) {
		router, err := New(shared.StorageConfig{Kind: "fs", Root: root})
		require.NoError(t, err)

		a, err := router.Open(ctx, "a.mp4")
		require.NoError(t, err)
		assert.Equal(t, []byte("fs"), readAll(t, a))
	})

	t.Run("http URLs go to the HTTP backend", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("web"))
		}))
		t.Cleanup(srv.Close)

		router, err := New(shared.StorageConfig{Kind: "fs", Root: root})
		require.NoError(t, err)

		a, err := router.Open(ctx, srv.URL+"/b.mp4")
		require.NoError(t, err)
		assert.Equal(t, []byte("web"), readAll(t, a))
	})

	t.Run("s3 URLs fail without an S3 backend", func(t *testing.T) {
		router, err := New(shared.StorageConfig{Kind: "fs", Root: root})
		require.NoError(t, err)

		_, err = router.Open(ctx, "s3://bucket/key.mp4")
		assert.ErrorIs(t, err, shared.ErrInvalidAsset)
	})

	t.Run("Put goes to the default backend", func(t *testing.T) {
		router, err := New(shared.StorageConfig{Kind: "fs", Root: root})
		require.NoError(t, err)

		u, err := router.Put(ctx, "new.mp4", bytes.NewReader([]byte("x")), 1)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(u, "file://"))
	})

	t.Run("Put fails on a read-only default", func(t *testing.T) {
		router, err := New(shared.StorageConfig{Kind: "http"})
		require.NoError(t, err)

		_, err = router.Put(ctx, "new.mp4", bytes.NewReader([]byte("x")), 1)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("rejects unknown kinds", func(t *testing.T) {
		_, err := New(shared.StorageConfig{Kind: "ftp"})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})

	t.Run("s3 kind needs a bucket", func(t *testing.T) {
		_, err := New(shared.StorageConfig{Kind: "s3"})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}
