package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/ytpub/internal/shared"
)

func setupTestDB(t *testing.T) *DBStore {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewDBStore(db)
}

func TestDBStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Missing Secret", func(t *testing.T) {
		store := setupTestDB(t)

		_, err := store.Secret(ctx, "ytpub", "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected shared.ErrNotFound, got %v", err)
		}
	})

	t.Run("Latest Version Wins", func(t *testing.T) {
		store := setupTestDB(t)

		for _, v := range []string{"one", "two", "three"} {
			if err := store.PutSecret(ctx, "ytpub", "token", []byte(v)); err != nil {
				t.Fatalf("failed to put secret: %v", err)
			}
		}

		got, err := store.Secret(ctx, "ytpub", "token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != "three" {
			t.Errorf("expected latest version 'three', got %q", got)
		}
	})

	t.Run("Scopes Are Isolated", func(t *testing.T) {
		store := setupTestDB(t)

		if err := store.PutSecret(ctx, "a", "token", []byte("x")); err != nil {
			t.Fatalf("failed to put secret: %v", err)
		}
		if _, err := store.Secret(ctx, "b", "token"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound in other scope, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store := setupTestDB(t)

		if err := store.PutSecret(ctx, "ytpub", "token", []byte("x")); err != nil {
			t.Fatalf("failed to put secret: %v", err)
		}
		if err := store.DeleteSecret(ctx, "ytpub", "token"); err != nil {
			t.Fatalf("failed to delete secret: %v", err)
		}
		if _, err := store.Secret(ctx, "ytpub", "token"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := store.DeleteSecret(ctx, "ytpub", "token"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestEnvStore(t *testing.T) {
	store := &EnvStore{prefix: "YTPUB", lookup: func(name string) (string, bool) {
		env := map[string]string{
			"YTPUB_STUDIO_YOUTUBE_REFRESH_TOKEN_OWNER_EXAMPLE_COM": "rt",
			"YTPUB_STUDIO_EMPTY": "",
		}
		v, ok := env[name]
		return v, ok
	}}

	t.Run("VarName", func(t *testing.T) {
		got := store.VarName("studio", shared.RefreshTokenKey("owner@example.com"))
		if got != "YTPUB_STUDIO_YOUTUBE_REFRESH_TOKEN_OWNER_EXAMPLE_COM" {
			t.Errorf("unexpected var name %s", got)
		}
	})

	t.Run("Found", func(t *testing.T) {
		got, err := store.Secret(context.Background(), "studio", shared.RefreshTokenKey("owner@example.com"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(got) != "rt" {
			t.Errorf("expected rt, got %q", got)
		}
	})

	t.Run("Empty Is Missing", func(t *testing.T) {
		if _, err := store.Secret(context.Background(), "studio", "empty"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
