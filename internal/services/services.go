package services

import (
	"context"
	"io"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/ytpub/internal/models"
)

// VideoService defines the operations the publish pipeline and the CLI perform against the hosting API.
type VideoService interface {
	// Upload sends the asset and its metadata in one resumable session and returns the new video id.
	Upload(ctx context.Context, in UploadInput, onProgress ProgressFunc) (string, error)

	// SetThumbnail replaces the custom thumbnail of an uploaded video.
	SetThumbnail(ctx context.Context, videoID string, data []byte, contentType string) error

	// Video fetches the remote metadata for a video.
	Video(ctx context.Context, videoID string) (*RemoteVideo, error)

	// UpdateVideo overwrites the snippet and status of a video.
	UpdateVideo(ctx context.Context, videoID string, m models.Metadata) error

	// DeleteVideo removes a video.
	DeleteVideo(ctx context.Context, videoID string) error

	// OwnedChannels returns the ids of the channels owned by the authorized account.
	OwnedChannels(ctx context.Context) ([]string, error)
}

// Factory builds a [VideoService] bound to a token source.
//
// Each publish resolves its own credential, so services are built per request.
type Factory func(ctx context.Context, ts oauth2.TokenSource) (VideoService, error)

// OwnedChannels builds a service for ts and lists the channels its account owns.
func (f Factory) OwnedChannels(ctx context.Context, ts oauth2.TokenSource) ([]string, error) {
	svc, err := f(ctx, ts)
	if err != nil {
		return nil, err
	}
	return svc.OwnedChannels(ctx)
}

// ProgressFunc observes upload progress. fraction is in [0, 1].
type ProgressFunc func(fraction float64, sent int64)

// UploadInput is the asset and metadata for a single upload.
type UploadInput struct {
	Metadata    models.Metadata
	Description string // rendered description, overrides Metadata.Description
	Name        string // asset file name, used for the extension check and content type
	Size        int64
	Body        io.Reader
}

// RemoteVideo is the subset of a hosted video's resource the CLI displays.
type RemoteVideo struct {
	ID            string
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
	UploadStatus  string
	Duration      time.Duration
	PublishedAt   string
}
