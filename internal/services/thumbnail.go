package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/desertthunder/ytpub/internal/shared"
)

// MaxThumbnailSize is the largest image the hosting service accepts as a thumbnail.
const MaxThumbnailSize int64 = 2 << 20

// ErrThumbnailSkipped marks a thumbnail that could not be obtained at all: the fetch failed or the body was empty.
var ErrThumbnailSkipped = fmt.Errorf("%w: skipped", shared.ErrThumbnail)

var imageSignatures = []struct {
	magic       []byte
	contentType string
}{
	{[]byte{0xFF, 0xD8, 0xFF}, "image/jpeg"},
	{[]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
	{[]byte("GIF87a"), "image/gif"},
	{[]byte("GIF89a"), "image/gif"},
	{[]byte("BM"), "image/bmp"},
}

// ThumbnailFetcher downloads thumbnail images with bounded connect and read times.
type ThumbnailFetcher struct {
	client   *http.Client
	maxBytes int64
}

// ThumbnailFetcherOpts configures a [ThumbnailFetcher]. Zero values take the defaults.
type ThumbnailFetcherOpts struct {
	ConnectTimeout time.Duration // default 30s
	ReadTimeout    time.Duration // default 60s
	MaxBytes       int64         // default MaxThumbnailSize
	Transport      *http.Transport
}

// NewThumbnailFetcher creates a [ThumbnailFetcher].
func NewThumbnailFetcher(opts ThumbnailFetcherOpts) *ThumbnailFetcher {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 30 * time.Second
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = MaxThumbnailSize
	}

	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	transport.DialContext = (&net.Dialer{Timeout: opts.ConnectTimeout}).DialContext
	transport.ResponseHeaderTimeout = opts.ReadTimeout

	return &ThumbnailFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.ConnectTimeout + opts.ReadTimeout,
		},
		maxBytes: opts.MaxBytes,
	}
}

// Fetch downloads the image at url, reading at most one byte past the size limit.
//
// Any transport failure, non-2xx status or empty body is [ErrThumbnailSkipped].
func (f *ThumbnailFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailSkipped, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrThumbnailSkipped, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d from %s", ErrThumbnailSkipped, resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrThumbnailSkipped, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body from %s", ErrThumbnailSkipped, url)
	}
	return data, nil
}

// CheckImage verifies size and file signature, returning the detected content type.
func CheckImage(data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = MaxThumbnailSize
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: image exceeds %d bytes", shared.ErrThumbnail, maxBytes)
	}
	for _, sig := range imageSignatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.contentType, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported image format", shared.ErrThumbnail)
}

// ThumbnailUploader attaches a thumbnail to an already uploaded video.
type ThumbnailUploader struct {
	fetcher *ThumbnailFetcher
	videos  VideoService
}

// NewThumbnailUploader creates a [ThumbnailUploader] that sets thumbnails through videos.
func NewThumbnailUploader(fetcher *ThumbnailFetcher, videos VideoService) *ThumbnailUploader {
	return &ThumbnailUploader{fetcher: fetcher, videos: videos}
}

// Attach fetches url, checks it, and sets it as the thumbnail of videoID.
func (u *ThumbnailUploader) Attach(ctx context.Context, videoID, url string) error {
	data, err := u.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}

	contentType, err := CheckImage(data, u.fetcher.maxBytes)
	if err != nil {
		return err
	}

	return u.videos.SetThumbnail(ctx, videoID, data, contentType)
}
