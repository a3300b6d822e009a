// package models defines the data model for the publish pipeline
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/ytpub/internal/shared"
)

// TaskStatus is the workflow status of an editing task.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskInReview  TaskStatus = "in_review"
	TaskCompleted TaskStatus = "completed"
)

// Task is an editing task owning revisions and comments.
type Task struct {
	ID        string
	Sequence  int
	Title     string
	Status    TaskStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewTask creates an open task with the given title.
func NewTask(title string) *Task {
	now := time.Now()
	return &Task{Title: title, Status: TaskOpen, CreatedAt: now, UpdatedAt: now}
}

// Validate checks the task before persistence.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title is required", shared.ErrInvalidInput)
	}
	switch t.Status {
	case TaskOpen, TaskInReview, TaskCompleted:
		return nil
	default:
		return fmt.Errorf("%w: unknown task status %q", shared.ErrInvalidInput, t.Status)
	}
}

// Revision is one uploaded cut of a task's video. The newest revision is the one published.
type Revision struct {
	ID        string
	Sequence  int
	TaskID    string
	AssetURL  string // location in the binary asset store
	AssetName string // original file name, used for the extension allow-list
	CreatedAt time.Time
}

// Comment is an entry in a task's audit trail.
type Comment struct {
	ID        string
	Sequence  int
	TaskID    string
	Author    string
	Body      string
	CreatedAt time.Time
}

// Channel identifies one external destination a video can be published to.
type Channel struct {
	ID         string
	Sequence   int
	ExternalID string // channel id on the hosting service
	Name       string
	OwnerEmail string // account that owns the channel
	SecretKey  string // name of the refresh token secret, derived from OwnerEmail
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewChannel creates an active channel and derives its secret key from the owner email.
func NewChannel(externalID, name, ownerEmail string) *Channel {
	now := time.Now()
	return &Channel{
		ExternalID: externalID,
		Name:       name,
		OwnerEmail: ownerEmail,
		SecretKey:  shared.RefreshTokenKey(ownerEmail),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate checks the channel before persistence.
func (c *Channel) Validate() error {
	if strings.TrimSpace(c.ExternalID) == "" {
		return fmt.Errorf("%w: channel external id is required", shared.ErrInvalidInput)
	}
	if !strings.Contains(c.OwnerEmail, "@") {
		return fmt.Errorf("%w: channel owner email %q is invalid", shared.ErrInvalidInput, c.OwnerEmail)
	}
	if c.SecretKey != shared.RefreshTokenKey(c.OwnerEmail) {
		return fmt.Errorf("%w: channel secret key does not match owner email", shared.ErrInvalidInput)
	}
	return nil
}

// TaskExport bundles a task with its history for "task show" and the exporters.
type TaskExport struct {
	*Task
	Revisions []*Revision      `json:"revisions"`
	Comments  []*Comment       `json:"comments"`
	Publishes []*UploadOutcome `json:"publishes"`
}
