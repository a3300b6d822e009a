package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

const channelColumns = `id, sequence, external_id, name, owner_email, secret_key, active, created_at, updated_at`

// ChannelRepository persists publish destinations.
type ChannelRepository struct {
	db *sql.DB
}

// NewChannelRepository creates a new [ChannelRepository] with the given database connection
func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// Create inserts a new channel with generated ID and sequence
func (r *ChannelRepository) Create(ch *models.Channel) error {
	if err := ch.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "channels")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	ch.ID = shared.GenerateID()
	ch.Sequence = sequence

	query := `
		INSERT INTO channels (id, sequence, external_id, name, owner_email, secret_key, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, ch.ID, sequence, ch.ExternalID, ch.Name, ch.OwnerEmail, ch.SecretKey, ch.Active, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}

	return nil
}

// Get retrieves a channel by ID, excluding soft-deleted channels
func (r *ChannelRepository) Get(id string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByExternalID retrieves a channel by its id on the hosting service.
func (r *ChannelRepository) GetByExternalID(externalID string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE external_id = ? AND deleted_at IS NULL`
	return r.scanOne(r.db.QueryRow(query, externalID), externalID)
}

// SetActive enables or disables publishing to a channel.
func (r *ChannelRepository) SetActive(id string, active bool) error {
	query := `
		UPDATE channels
		SET active = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	return expectRow(result, shared.ErrChannelNotFound, id)
}

// Delete soft-deletes a channel by ID
func (r *ChannelRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE channels SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return expectRow(result, shared.ErrChannelNotFound, id)
}

// List retrieves channels matching criteria ("owner_email", "active"), oldest first
func (r *ChannelRepository) List(criteria map[string]any) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE deleted_at IS NULL`
	args := []any{}

	if email, ok := criteria["owner_email"].(string); ok && email != "" {
		query += " AND owner_email = ?"
		args = append(args, email)
	}

	if active, ok := criteria["active"].(bool); ok {
		query += " AND active = ?"
		args = append(args, active)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return channels, nil
}

func (r *ChannelRepository) scanOne(row *sql.Row, key string) (*models.Channel, error) {
	ch, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrChannelNotFound, key)
	}
	return ch, err
}

func scanChannel(row scanner) (*models.Channel, error) {
	var ch models.Channel
	err := row.Scan(&ch.ID, &ch.Sequence, &ch.ExternalID, &ch.Name, &ch.OwnerEmail, &ch.SecretKey, &ch.Active, &ch.CreatedAt, &ch.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}
	return &ch, nil
}
