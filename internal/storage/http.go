package storage

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/ytpub/internal/shared"
)

// HTTPStore streams assets from HTTP(S) URLs. The server must report Content-Length.
type HTTPStore struct {
	client *http.Client
}

// NewHTTPStore creates an [HTTPStore]; a nil client uses [http.DefaultClient].
func NewHTTPStore(client *http.Client) *HTTPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{client: client}
}

// Open implements [Store].
func (s *HTTPStore) Open(ctx context.Context, rawURL string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidAsset, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d from %s", shared.ErrInvalidAsset, resp.StatusCode, rawURL)
	}
	if resp.ContentLength < 0 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s did not report a length", shared.ErrInvalidAsset, rawURL)
	}

	return &Asset{Name: baseName(rawURL), Size: resp.ContentLength, Body: resp.Body}, nil
}
