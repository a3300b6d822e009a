// YouTube Data API implementation of [VideoService]
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

const (
	// MaxAssetSize is the largest file the hosting service accepts.
	MaxAssetSize int64 = 256 << 30

	// DefaultCategoryID is "People & Blogs", used when no category is set.
	DefaultCategoryID = "22"

	ageRestrictedRating = "ytAgeRestricted"
	defaultChunkSize    = 16 << 20
	defaultAPITimeout   = 60 * time.Second
)

var assetTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".3gp":  "video/3gpp",
	".3gpp": "video/3gpp",
	".mpg":  "video/mpeg",
	".mpeg": "video/mpeg",
	".mts":  "video/mp2t",
	".m2ts": "video/mp2t",
	".ts":   "video/mp2t",
	".ogv":  "video/ogg",
}

// YouTubeOpts configures a [YouTubeService].
type YouTubeOpts struct {
	ChunkSize     int               // resumable chunk size in bytes
	UploadTimeout time.Duration     // bounds a whole upload; zero means the caller's context only
	APITimeout    time.Duration     // bounds metadata calls and thumbnail sets
	Transport     http.RoundTripper // base transport under the OAuth2 transport
	ClientOptions []option.ClientOption
}

// YouTubeService talks to the YouTube Data API v3 on behalf of one account.
type YouTubeService struct {
	svc  *youtube.Service
	opts YouTubeOpts
}

// NewYouTubeService creates a [YouTubeService] whose every request draws a token from ts.
func NewYouTubeService(ctx context.Context, ts oauth2.TokenSource, opts YouTubeOpts) (*YouTubeService, error) {
	if ts == nil {
		return nil, fmt.Errorf("%w: token source is required", shared.ErrMissingCredentials)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.APITimeout <= 0 {
		opts.APITimeout = defaultAPITimeout
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base}}

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(client)}, opts.ClientOptions...)
	svc, err := youtube.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}

	return &YouTubeService{svc: svc, opts: opts}, nil
}

// NewFactory returns a [Factory] producing [YouTubeService] values with opts.
func NewFactory(opts YouTubeOpts) Factory {
	return func(ctx context.Context, ts oauth2.TokenSource) (VideoService, error) {
		return NewYouTubeService(ctx, ts, opts)
	}
}

// CheckAsset rejects assets the hosting service would refuse, before any bytes are sent.
func CheckAsset(name string, size int64) error {
	if size <= 0 {
		return fmt.Errorf("%w: %s is empty", shared.ErrInvalidAsset, name)
	}
	if size > MaxAssetSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", shared.ErrInvalidAsset, name, size, MaxAssetSize)
	}
	if _, ok := assetTypes[strings.ToLower(filepath.Ext(name))]; !ok {
		return fmt.Errorf("%w: unsupported file type %q", shared.ErrInvalidAsset, filepath.Ext(name))
	}
	return nil
}

// Upload creates the video with its metadata and streams the asset in chunks.
//
// Progress callbacks are advisory. The thumbnail is never attached here.
func (y *YouTubeService) Upload(ctx context.Context, in UploadInput, onProgress ProgressFunc) (string, error) {
	if err := CheckAsset(in.Name, in.Size); err != nil {
		return "", err
	}
	if in.Body == nil {
		return "", fmt.Errorf("%w: %s has no content", shared.ErrInvalidAsset, in.Name)
	}

	description := in.Description
	if description == "" {
		description = in.Metadata.Description
	}
	video := buildVideo(in.Metadata, description)

	if y.opts.UploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, y.opts.UploadTimeout)
		defer cancel()
	}

	call := y.svc.Videos.Insert(videoParts(in.Metadata), video).
		NotifySubscribers(in.Metadata.PrivacyStatus == models.PrivacyPublic).
		Media(in.Body,
			googleapi.ChunkSize(y.opts.ChunkSize),
			googleapi.ContentType(assetTypes[strings.ToLower(filepath.Ext(in.Name))]),
		).
		Context(ctx)

	if onProgress != nil {
		size := in.Size
		call = call.ProgressUpdater(func(current, _ int64) {
			fraction := float64(current) / float64(size)
			if fraction > 1 {
				fraction = 1
			}
			onProgress(fraction, current)
		})
	}

	created, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("%w: %s", shared.ErrUpload, describeAPIError(err))
	}
	if created == nil || created.Id == "" {
		return "", fmt.Errorf("%w: response carried no video id", shared.ErrUpload)
	}

	if onProgress != nil {
		onProgress(1, in.Size)
	}
	return created.Id, nil
}

// SetThumbnail uploads image bytes as the custom thumbnail for videoID.
func (y *YouTubeService) SetThumbnail(ctx context.Context, videoID string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, y.opts.APITimeout)
	defer cancel()

	_, err := y.svc.Thumbnails.Set(videoID).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("%w: %s", shared.ErrThumbnail, describeAPIError(err))
	}
	return nil
}

// Video fetches snippet, status and content details for videoID.
func (y *YouTubeService) Video(ctx context.Context, videoID string) (*RemoteVideo, error) {
	ctx, cancel := context.WithTimeout(ctx, y.opts.APITimeout)
	defer cancel()

	resp, err := y.svc.Videos.List([]string{"snippet", "status", "contentDetails"}).
		Id(videoID).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, describeAPIError(err))
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("video %s %w", videoID, shared.ErrNotFound)
	}

	return toRemoteVideo(resp.Items[0])
}

// UpdateVideo replaces the title, description, tags, category and privacy of videoID.
func (y *YouTubeService) UpdateVideo(ctx context.Context, videoID string, m models.Metadata) error {
	ctx, cancel := context.WithTimeout(ctx, y.opts.APITimeout)
	defer cancel()

	video := buildVideo(m, m.Description)
	video.Id = videoID
	video.RecordingDetails = nil
	video.ContentDetails = nil

	if _, err := y.svc.Videos.Update([]string{"snippet", "status"}, video).Context(ctx).Do(); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("video %s %w", videoID, shared.ErrNotFound)
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, describeAPIError(err))
	}
	return nil
}

// DeleteVideo removes videoID.
func (y *YouTubeService) DeleteVideo(ctx context.Context, videoID string) error {
	ctx, cancel := context.WithTimeout(ctx, y.opts.APITimeout)
	defer cancel()

	if err := y.svc.Videos.Delete(videoID).Context(ctx).Do(); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("video %s %w", videoID, shared.ErrNotFound)
		}
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, describeAPIError(err))
	}
	return nil
}

func videoParts(m models.Metadata) []string {
	parts := []string{"snippet", "status"}
	if m.Recording != nil {
		parts = append(parts, "recordingDetails")
	}
	if m.AgeRestricted {
		parts = append(parts, "contentDetails")
	}
	return parts
}

func buildVideo(m models.Metadata, description string) *youtube.Video {
	category := m.CategoryID
	if category == "" {
		category = DefaultCategoryID
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                m.Title,
			Description:          description,
			Tags:                 m.Tags,
			CategoryId:           category,
			DefaultLanguage:      m.Language,
			DefaultAudioLanguage: m.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           strings.ToLower(m.PrivacyStatus),
			SelfDeclaredMadeForKids: m.MadeForKids,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}

	if rec := m.Recording; rec != nil {
		details := &youtube.VideoRecordingDetails{LocationDescription: rec.LocationDescription}
		if rec.Date != nil {
			details.RecordingDate = rec.Date.UTC().Format(time.RFC3339)
		}
		if rec.Latitude != nil && rec.Longitude != nil {
			details.Location = &youtube.GeoPoint{
				Latitude:        *rec.Latitude,
				Longitude:       *rec.Longitude,
				ForceSendFields: []string{"Latitude", "Longitude"},
			}
		}
		video.RecordingDetails = details
	}

	if m.AgeRestricted {
		video.ContentDetails = &youtube.VideoContentDetails{
			ContentRating: &youtube.ContentRating{YtRating: ageRestrictedRating},
		}
	}

	return video
}

func toRemoteVideo(item *youtube.Video) (*RemoteVideo, error) {
	rv := &RemoteVideo{ID: item.Id}
	if s := item.Snippet; s != nil {
		rv.Title = s.Title
		rv.Description = s.Description
		rv.Tags = s.Tags
		rv.CategoryID = s.CategoryId
		rv.PublishedAt = s.PublishedAt
	}
	if s := item.Status; s != nil {
		rv.PrivacyStatus = s.PrivacyStatus
		rv.UploadStatus = s.UploadStatus
	}
	if cd := item.ContentDetails; cd != nil && cd.Duration != "" {
		d, err := duration.Parse(cd.Duration)
		if err != nil {
			return nil, fmt.Errorf("%w: duration %q: %v", shared.ErrAPIRequest, cd.Duration, err)
		}
		rv.Duration = d.ToTimeDuration()
	}
	return rv, nil
}

// OwnedChannels lists the channels of the account behind the token.
func (y *YouTubeService) OwnedChannels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, y.opts.APITimeout)
	defer cancel()

	resp, err := y.svc.Channels.List([]string{"id"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrAPIRequest, describeAPIError(err))
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.Id)
	}
	return ids, nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// describeAPIError keeps the HTTP status and the API's reason so a failure is diagnosable from the log line.
func describeAPIError(err error) string {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}

	reason := apiErr.Message
	if len(apiErr.Errors) > 0 && apiErr.Errors[0].Reason != "" {
		reason = fmt.Sprintf("%s (%s)", reason, apiErr.Errors[0].Reason)
	}
	return fmt.Sprintf("status %d: %s", apiErr.Code, reason)
}
