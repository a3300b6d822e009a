package models

import (
	"time"
)

// Privacy statuses accepted by the hosting service.
const (
	PrivacyPrivate  = "private"
	PrivacyPublic   = "public"
	PrivacyUnlisted = "unlisted"
)

// Chapter is a named timestamp marker. A single Chapter carries no validity guarantee;
// only a full list accepted by the chapter renderer does.
type Chapter struct {
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"` // MM:SS or HH:MM:SS
	Order     *int   `json:"order,omitempty"`
}

// RecordingDetails describes where and when a video was recorded.
type RecordingDetails struct {
	Date                *time.Time `json:"date,omitempty"`
	LocationDescription string     `json:"locationDescription,omitempty"`
	Latitude            *float64   `json:"latitude,omitempty"`
	Longitude           *float64   `json:"longitude,omitempty"`
}

// Metadata is the publish metadata snapshot for one video.
type Metadata struct {
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Tags          []string          `json:"tags,omitempty"`
	CategoryID    string            `json:"categoryId,omitempty"`
	Language      string            `json:"language,omitempty"`
	PrivacyStatus string            `json:"privacyStatus"`
	AgeRestricted bool              `json:"ageRestricted"`
	MadeForKids   bool              `json:"madeForKids"`
	ThumbnailURL  string            `json:"thumbnailUrl,omitempty"`
	Recording     *RecordingDetails `json:"recordingDetails,omitempty"`
	Chapters      []Chapter         `json:"chapters,omitempty"`
}

// Clone returns a deep copy so a submitted snapshot cannot be changed through the caller's slices.
func (m Metadata) Clone() Metadata {
	out := m
	if m.Tags != nil {
		out.Tags = append([]string(nil), m.Tags...)
	}
	if m.Chapters != nil {
		out.Chapters = append([]Chapter(nil), m.Chapters...)
	}
	if m.Recording != nil {
		rec := *m.Recording
		out.Recording = &rec
	}
	return out
}

// AssetRef locates the binary of a revision in the asset store.
type AssetRef struct {
	URL  string
	Name string
}

// PublishState is a stage of the publish state machine.
type PublishState string

const (
	StateValidating          PublishState = "validating"
	StateCredentialResolving PublishState = "credential_resolving"
	StateUploading           PublishState = "uploading"
	StateThumbnailAttaching  PublishState = "thumbnail_attaching"
	StateFinalizing          PublishState = "finalizing"
	StateSucceeded           PublishState = "succeeded"
	StateFailed              PublishState = "failed"
)

// Terminal reports whether no transition is defined out of s.
func (s PublishState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// PublishRequest is the unit of work handed to the publish workers. It is built once by
// the orchestrator and never modified afterwards.
type PublishRequest struct {
	ID          string
	TaskID      string
	RevisionID  string
	Asset       AssetRef
	Channel     Channel
	Metadata    Metadata
	Description string // base description with the rendered chapter section
	SubmittedBy string
	CreatedAt   time.Time
}

// ThumbnailState tracks the best-effort thumbnail step independently of the video.
type ThumbnailState string

const (
	ThumbnailNone     ThumbnailState = ""
	ThumbnailAttached ThumbnailState = "attached"
	ThumbnailSkipped  ThumbnailState = "skipped"
	ThumbnailFailed   ThumbnailState = "failed"
)

// UploadOutcome is the terminal result of a PublishRequest.
type UploadOutcome struct {
	RequestID string         `json:"id"`
	TaskID    string         `json:"taskId"`
	ChannelID string         `json:"channelId"`
	Title     string         `json:"title"`
	State     PublishState   `json:"state"`
	Stage     PublishState   `json:"stage,omitempty"` // stage reached, or the stage that failed
	VideoID   string         `json:"videoId,omitempty"`
	WatchURL  string         `json:"watchUrl,omitempty"`
	Thumbnail ThumbnailState `json:"thumbnail,omitempty"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`

	Err error `json:"-"`
}

// Succeeded reports whether the video upload completed.
func (o *UploadOutcome) Succeeded() bool {
	return o.State == StateSucceeded
}
