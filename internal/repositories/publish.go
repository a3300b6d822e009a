package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

const publishColumns = `id, task_id, channel_id, title, state, stage, video_id, watch_url, thumbnail, error, created_at, updated_at`

// PublishRepository records one row per publish request.
//
// Rows are the durable outcome of a request: the success path also completes the task and
// appends the audit comment, while failures only land here.
type PublishRepository struct {
	db *sql.DB
}

// NewPublishRepository creates a new [PublishRepository] with the given database connection
func NewPublishRepository(db *sql.DB) *PublishRepository {
	return &PublishRepository{db: db}
}

// Create inserts the row for a freshly accepted request.
func (r *PublishRepository) Create(o *models.UploadOutcome) error {
	if o.RequestID == "" {
		return fmt.Errorf("%w: publish id is required", shared.ErrInvalidInput)
	}

	now := time.Now()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	query := `INSERT INTO publishes (` + publishColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		o.RequestID, o.TaskID, o.ChannelID, o.Title, o.State, o.Stage,
		o.VideoID, o.WatchURL, o.Thumbnail, o.Error, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert publish: %w", err)
	}
	return nil
}

// Update stores the current state of a request.
func (r *PublishRepository) Update(o *models.UploadOutcome) error {
	return updatePublish(r.db, o)
}

// Complete records a successful publish, moves the task to completed and appends comment, atomically.
func (r *PublishRepository) Complete(o *models.UploadOutcome, comment *models.Comment) error {
	sequence, err := NextSequence(r.db, "comments")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updatePublish(tx, o); err != nil {
		return err
	}
	if err := updateTaskStatus(tx, o.TaskID, models.TaskCompleted, o.UpdatedAt); err != nil {
		return err
	}
	if err := insertComment(tx, comment, sequence); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit publish: %w", err)
	}
	return nil
}

// Get retrieves a publish by request id.
func (r *PublishRepository) Get(id string) (*models.UploadOutcome, error) {
	query := `SELECT ` + publishColumns + ` FROM publishes WHERE id = ?`

	o, err := scanPublish(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("publish %s %w", id, shared.ErrNotFound)
	}
	return o, err
}

// List returns a task's publishes, newest first.
func (r *PublishRepository) List(taskID string) ([]*models.UploadOutcome, error) {
	query := `SELECT ` + publishColumns + ` FROM publishes WHERE task_id = ? ORDER BY created_at DESC`

	rows, err := r.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query publishes: %w", err)
	}
	defer rows.Close()

	var outcomes []*models.UploadOutcome
	for rows.Next() {
		o, err := scanPublish(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return outcomes, nil
}

func updatePublish(db execer, o *models.UploadOutcome) error {
	o.UpdatedAt = time.Now()

	query := `
		UPDATE publishes
		SET state = ?, stage = ?, video_id = ?, watch_url = ?, thumbnail = ?, error = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := db.Exec(query, o.State, o.Stage, o.VideoID, o.WatchURL, o.Thumbnail, o.Error, o.UpdatedAt, o.RequestID)
	if err != nil {
		return fmt.Errorf("failed to update publish: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("publish %s %w", o.RequestID, shared.ErrNotFound)
	}
	return nil
}

func scanPublish(row scanner) (*models.UploadOutcome, error) {
	var (
		o                       models.UploadOutcome
		state, stage, thumbnail string
	)

	err := row.Scan(
		&o.RequestID, &o.TaskID, &o.ChannelID, &o.Title, &state, &stage,
		&o.VideoID, &o.WatchURL, &thumbnail, &o.Error, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan publish: %w", err)
	}

	o.State = models.PublishState(state)
	o.Stage = models.PublishState(stage)
	o.Thumbnail = models.ThumbnailState(thumbnail)
	return &o, nil
}
