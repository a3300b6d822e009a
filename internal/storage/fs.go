package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/ytpub/internal/shared"
)

// FSStore reads and writes assets under a root directory.
type FSStore struct {
	root string
}

// NewFSStore creates an [FSStore]. An empty root means the working directory.
func NewFSStore(root string) *FSStore {
	if root == "" {
		root = "."
	}
	return &FSStore{root: root}
}

// Open accepts "file:///abs/path", an absolute path, or a path relative to the root.
func (s *FSStore) Open(_ context.Context, rawURL string) (*Asset, error) {
	p, err := s.resolve(rawURL)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidAsset, p)
	}

	return &Asset{Name: filepath.Base(p), Size: info.Size(), Body: f}, nil
}

// Put copies r to name under the root and returns its file URL.
func (s *FSStore) Put(_ context.Context, name string, r io.Reader, _ int64) (string, error) {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("%w: asset name %q", shared.ErrInvalidArgument, name)
	}

	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	dest := filepath.Join(s.root, shared.GenerateID()+"-"+name)
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create asset: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("failed to write asset: %w", err)
	}

	abs, err := filepath.Abs(dest)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (s *FSStore) resolve(rawURL string) (string, error) {
	if strings.HasPrefix(rawURL, "file://") {
		u, err := url.Parse(rawURL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
		}
		return filepath.FromSlash(u.Path), nil
	}
	if filepath.IsAbs(rawURL) {
		return rawURL, nil
	}

	p := filepath.Join(s.root, rawURL)
	rel, err := filepath.Rel(s.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s escapes the asset root", shared.ErrInvalidAsset, rawURL)
	}
	return p, nil
}
