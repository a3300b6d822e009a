package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

// TaskRepository persists [models.Task] values.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new [TaskRepository] with the given database connection
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task with generated ID and sequence
func (r *TaskRepository) Create(task *models.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "tasks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	task.ID = shared.GenerateID()
	task.Sequence = sequence

	query := `
		INSERT INTO tasks (id, sequence, title, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := r.db.Exec(query, task.ID, sequence, task.Title, task.Status, task.CreatedAt, task.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID, excluding soft-deleted tasks
func (r *TaskRepository) Get(id string) (*models.Task, error) {
	query := `
		SELECT id, sequence, title, status, created_at, updated_at, deleted_at
		FROM tasks
		WHERE id = ? AND deleted_at IS NULL
	`

	task, err := scanTask(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}
	return task, err
}

// UpdateStatus moves a task to status.
func (r *TaskRepository) UpdateStatus(id string, status models.TaskStatus) error {
	return updateTaskStatus(r.db, id, status, time.Now())
}

// Delete soft-deletes a task by ID
func (r *TaskRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE tasks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRow(result, shared.ErrTaskNotFound, id)
}

// List retrieves tasks matching criteria ("status"), newest first
func (r *TaskRepository) List(criteria map[string]any) ([]*models.Task, error) {
	query := `
		SELECT id, sequence, title, status, created_at, updated_at, deleted_at
		FROM tasks
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tasks, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func updateTaskStatus(db execer, id string, status models.TaskStatus, now time.Time) error {
	query := `
		UPDATE tasks
		SET status = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := db.Exec(query, status, now, id)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return expectRow(result, shared.ErrTaskNotFound, id)
}

func expectRow(result sql.Result, notFound error, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return nil
}

func scanTask(row scanner) (*models.Task, error) {
	var (
		task      models.Task
		status    string
		deletedAt sql.NullTime
	)

	err := row.Scan(&task.ID, &task.Sequence, &task.Title, &status, &task.CreatedAt, &task.UpdatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	task.Status = models.TaskStatus(status)
	if deletedAt.Valid {
		task.DeletedAt = &deletedAt.Time
	}
	return &task, nil
}

// RevisionRepository persists [models.Revision] values.
type RevisionRepository struct {
	db *sql.DB
}

// NewRevisionRepository creates a new [RevisionRepository] with the given database connection
func NewRevisionRepository(db *sql.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

// Create inserts a revision for an existing task.
func (r *RevisionRepository) Create(rev *models.Revision) error {
	if rev.AssetURL == "" {
		return fmt.Errorf("%w: revision asset url is required", shared.ErrInvalidInput)
	}

	sequence, err := NextSequence(r.db, "revisions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	rev.ID = shared.GenerateID()
	rev.Sequence = sequence
	if rev.CreatedAt.IsZero() {
		rev.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO revisions (id, sequence, task_id, asset_url, asset_name, created_at)
		SELECT ?, ?, id, ?, ?, ? FROM tasks WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, rev.ID, sequence, rev.AssetURL, rev.AssetName, rev.CreatedAt, rev.TaskID)
	if err != nil {
		return fmt.Errorf("failed to insert revision: %w", err)
	}
	return expectRow(result, shared.ErrTaskNotFound, rev.TaskID)
}

// Latest returns the newest revision of a task, or an error wrapping [shared.ErrNotFound].
func (r *RevisionRepository) Latest(taskID string) (*models.Revision, error) {
	query := `
		SELECT id, sequence, task_id, asset_url, asset_name, created_at
		FROM revisions
		WHERE task_id = ?
		ORDER BY sequence DESC
		LIMIT 1
	`

	var rev models.Revision
	err := r.db.QueryRow(query, taskID).Scan(&rev.ID, &rev.Sequence, &rev.TaskID, &rev.AssetURL, &rev.AssetName, &rev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision for task %s %w", taskID, shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query revision: %w", err)
	}
	return &rev, nil
}

// List returns a task's revisions, oldest first.
func (r *RevisionRepository) List(taskID string) ([]*models.Revision, error) {
	query := `
		SELECT id, sequence, task_id, asset_url, asset_name, created_at
		FROM revisions
		WHERE task_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*models.Revision
	for rows.Next() {
		var rev models.Revision
		if err := rows.Scan(&rev.ID, &rev.Sequence, &rev.TaskID, &rev.AssetURL, &rev.AssetName, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, &rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return revisions, nil
}

// CommentRepository persists the task audit trail.
type CommentRepository struct {
	db *sql.DB
}

// NewCommentRepository creates a new [CommentRepository] with the given database connection
func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create appends a comment to a task.
func (r *CommentRepository) Create(c *models.Comment) error {
	sequence, err := NextSequence(r.db, "comments")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	return insertComment(r.db, c, sequence)
}

// List returns a task's comments, oldest first.
func (r *CommentRepository) List(taskID string) ([]*models.Comment, error) {
	query := `
		SELECT id, sequence, task_id, author, body, created_at
		FROM comments
		WHERE task_id = ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []*models.Comment
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.Sequence, &c.TaskID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return comments, nil
}

func insertComment(db execer, c *models.Comment, sequence int) error {
	if c.Body == "" {
		return fmt.Errorf("%w: comment body is required", shared.ErrInvalidInput)
	}

	c.ID = shared.GenerateID()
	c.Sequence = sequence
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO comments (id, sequence, task_id, author, body, created_at)
		SELECT ?, ?, id, ?, ?, ? FROM tasks WHERE id = ? AND deleted_at IS NULL
	`

	result, err := db.Exec(query, c.ID, sequence, c.Author, c.Body, c.CreatedAt, c.TaskID)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return expectRow(result, shared.ErrTaskNotFound, c.TaskID)
}
