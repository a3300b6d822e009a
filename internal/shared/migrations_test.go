package shared

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestMigrations(t *testing.T) {
	t.Run("Migrations", func(t *testing.T) {
		migrations, err := Migrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}

		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}

		for i := 1; i < len(migrations); i++ {
			if migrations[i].Version <= migrations[i-1].Version {
				t.Errorf("migrations not sorted: version %d comes after %d", migrations[i].Version, migrations[i-1].Version)
			}
		}

		for _, m := range migrations {
			if m.Name == "" {
				t.Errorf("migration version %d has no name", m.Version)
			}
			if m.Up == "" || m.Down == "" {
				t.Errorf("migration %s missing up or down SQL", m)
			}
		}

		if got := migrations[0].String(); got != "0001_create_tasks" {
			t.Errorf("expected 0001_create_tasks, got %s", got)
		}
	})

	t.Run("statements", func(t *testing.T) {
		got := statements("-- header\nCREATE TABLE a (id TEXT); -- trailing\n\n;CREATE INDEX i ON a(id);")
		if len(got) != 2 {
			t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
		}
		if got[0] != "CREATE TABLE a (id TEXT)" {
			t.Errorf("unexpected first statement %q", got[0])
		}
	})
}

func TestMigrator(t *testing.T) {
	t.Run("Up And Rollback", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		var buf bytes.Buffer
		m := NewMigrator(db, log.New(&buf))

		ran, err := m.Up()
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		all, _ := Migrations()
		if len(ran) != len(all) {
			t.Errorf("expected %d migrations applied, got %d", len(all), len(ran))
		}
		if !strings.Contains(buf.String(), "migration applied") {
			t.Errorf("expected applied migrations to be logged, got %q", buf.String())
		}

		if _, err := db.Exec("SELECT 1 FROM publishes LIMIT 1"); err != nil {
			t.Errorf("publishes table should exist after migrations: %v", err)
		}

		before, err := m.Version()
		if err != nil {
			t.Fatalf("failed to read version: %v", err)
		}

		rolled, err := m.Rollback()
		if err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if rolled.Version != before {
			t.Errorf("expected to roll back %d, rolled back %d", before, rolled.Version)
		}
		if !strings.Contains(buf.String(), "migration rolled back") {
			t.Errorf("expected rollback to be logged, got %q", buf.String())
		}

		after, _ := m.Version()
		if after >= before {
			t.Errorf("expected version to decrease after rollback, got %d (was %d)", after, before)
		}
		if _, err := db.Exec("SELECT 1 FROM publishes LIMIT 1"); err == nil {
			t.Error("publishes table should be gone after rolling back its migration")
		}

		ran, err = m.Up()
		if err != nil {
			t.Fatalf("failed to reapply: %v", err)
		}
		if len(ran) != 1 || ran[0].Version != before {
			t.Errorf("expected only %d to be reapplied, got %v", before, ran)
		}
	})

	t.Run("Rollback With Nothing Applied", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := NewMigrator(db, nil).Rollback(); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}

		ran, err := NewMigrator(db, nil).Up()
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if len(ran) != 0 {
			t.Errorf("expected nothing to apply, got %d", len(ran))
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
			t.Fatalf("failed to query schema_migrations: %v", err)
		}

		migrations, _ := Migrations()
		if count != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), count)
		}
	})
}
