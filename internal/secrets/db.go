package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DBStore keeps versioned secrets in the application database. Reads return the newest
// version that has not been destroyed.
type DBStore struct {
	db *sql.DB
}

// NewDBStore creates a [DBStore] backed by db. The secrets table is created by the migrations.
func NewDBStore(db *sql.DB) *DBStore {
	return &DBStore{db: db}
}

// Secret returns the latest version of key in scope.
func (s *DBStore) Secret(ctx context.Context, scope, key string) ([]byte, error) {
	query := `
		SELECT value FROM secrets
		WHERE scope = ? AND name = ? AND destroyed_at IS NULL
		ORDER BY version DESC
		LIMIT 1
	`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, scope, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s/%s: %w", scope, key, err)
	}

	return value, nil
}

// PutSecret adds a new version of key in scope.
func (s *DBStore) PutSecret(ctx context.Context, scope, key string, value []byte) error {
	query := `
		INSERT INTO secrets (scope, name, version, value, created_at)
		SELECT ?, ?, COALESCE(MAX(version), 0) + 1, ?, ?
		FROM secrets WHERE scope = ? AND name = ?
	`

	if _, err := s.db.ExecContext(ctx, query, scope, key, value, time.Now(), scope, key); err != nil {
		return fmt.Errorf("failed to write secret %s/%s: %w", scope, key, err)
	}

	return nil
}

// DeleteSecret destroys every version of key in scope.
func (s *DBStore) DeleteSecret(ctx context.Context, scope, key string) error {
	query := `UPDATE secrets SET destroyed_at = ? WHERE scope = ? AND name = ? AND destroyed_at IS NULL`

	result, err := s.db.ExecContext(ctx, query, time.Now(), scope, key)
	if err != nil {
		return fmt.Errorf("failed to delete secret %s/%s: %w", scope, key, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, scope, key)
	}

	return nil
}
