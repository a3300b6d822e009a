package shared

import (
	"database/sql"
	"embed"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

// Migration is one numbered schema change, read from a pair of files named
// NNNN_name_up.sql and NNNN_name_down.sql.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%04d_%s", m.Version, m.Name)
}

// Migrations returns the embedded migrations ordered by version.
func Migrations() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	byVersion := make(map[int]*Migration)
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(file, ".sql") {
			continue
		}

		stem := strings.TrimSuffix(file, ".sql")
		prefix, rest, ok := strings.Cut(stem, "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}

		content, err := migrationFiles.ReadFile(path.Join("sql", file))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version}
			byVersion[version] = m
		}
		switch {
		case strings.HasSuffix(rest, "_up"):
			m.Name = strings.TrimSuffix(rest, "_up")
			m.Up = string(content)
		case strings.HasSuffix(rest, "_down"):
			m.Down = string(content)
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" || m.Down == "" {
			return nil, fmt.Errorf("%w: migration %04d needs both up and down SQL", ErrInvalidConfig, m.Version)
		}
		migrations = append(migrations, *m)
	}
	slices.SortFunc(migrations, func(a, b Migration) int { return a.Version - b.Version })
	return migrations, nil
}

// Migrator applies and rolls back the embedded migrations, tracking them in schema_migrations.
type Migrator struct {
	db     *sql.DB
	logger *log.Logger
}

// NewMigrator creates a [Migrator]. A nil logger discards output.
func NewMigrator(db *sql.DB, logger *log.Logger) *Migrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Migrator{db: db, logger: logger}
}

// RunMigrations applies every pending migration without logging.
func RunMigrations(db *sql.DB) error {
	_, err := NewMigrator(db, nil).Up()
	return err
}

// Up applies pending migrations in version order and returns the ones it applied.
func (m *Migrator) Up() ([]Migration, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := m.applied()
	if err != nil {
		return nil, err
	}

	var ran []Migration
	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		if err := m.exec(mig.Up, "INSERT INTO schema_migrations (version) VALUES (?)", mig.Version); err != nil {
			return ran, fmt.Errorf("failed to apply migration %s: %w", mig, err)
		}
		m.logger.Info("migration applied", "version", mig.Version, "name", mig.Name)
		ran = append(ran, mig)
	}
	return ran, nil
}

// Rollback reverts the most recently applied migration and returns it.
func (m *Migrator) Rollback() (*Migration, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, err
	}
	if err := m.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := m.Version()
	if err != nil {
		return nil, err
	}
	if current == 0 {
		return nil, fmt.Errorf("%w: no migrations to roll back", ErrNotFound)
	}

	idx := slices.IndexFunc(migrations, func(mig Migration) bool { return mig.Version == current })
	if idx < 0 {
		return nil, fmt.Errorf("%w: applied migration %04d is not embedded in this build", ErrNotFound, current)
	}
	mig := migrations[idx]

	if err := m.exec(mig.Down, "DELETE FROM schema_migrations WHERE version = ?", mig.Version); err != nil {
		return nil, fmt.Errorf("failed to roll back migration %s: %w", mig, err)
	}
	m.logger.Info("migration rolled back", "version", mig.Version, "name", mig.Name)
	return &mig, nil
}

// Version returns the highest applied migration, or 0 when none are.
func (m *Migrator) Version() (int, error) {
	var version int
	if err := m.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (m *Migrator) ensureTable() error {
	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	return err
}

func (m *Migrator) applied() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// exec runs script and the bookkeeping statement in one transaction.
func (m *Migrator) exec(script, record string, version int) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements(script) {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nstatement: %s", err, stmt)
		}
	}
	if _, err := tx.Exec(record, version); err != nil {
		return err
	}
	return tx.Commit()
}

// statements splits a script on semicolons, dropping line comments and blank statements.
func statements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			if idx := strings.Index(line, "--"); idx >= 0 {
				line = line[:idx]
			}
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			out = append(out, strings.Join(lines, "\n"))
		}
	}
	return out
}
