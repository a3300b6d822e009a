package repositories

import (
	"errors"
	"testing"

	"github.com/desertthunder/ytpub/internal/models"
	"github.com/desertthunder/ytpub/internal/shared"
)

func TestTaskRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			db := setupTestDB(t)
			defer db.Close()

			if err := NewTaskRepository(db).Create(models.NewTask("  ")); !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput for blank title, got %v", err)
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			db.Close()

			if err := NewTaskRepository(db).Create(models.NewTask("Launch")); err == nil {
				t.Fatal("expected error on closed database")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewTaskRepository(db).Get("missing"); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewTaskRepository(db).UpdateStatus("missing", models.TaskCompleted); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})

	t.Run("Delete twice", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewTaskRepository(db)
		task := createTask(t, db, "Launch")
		if err := repo.Delete(task.ID); err != nil {
			t.Fatalf("failed to delete task: %v", err)
		}
		if err := repo.Delete(task.ID); !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound on second delete, got %v", err)
		}
	})
}

func TestRevisionRepositoryErrors(t *testing.T) {
	t.Run("requires an asset url", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		task := createTask(t, db, "Launch")
		err := NewRevisionRepository(db).Create(&models.Revision{TaskID: task.ID, AssetName: "a.mp4"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("requires an existing task", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewRevisionRepository(db).Create(&models.Revision{TaskID: "missing", AssetURL: "a.mp4", AssetName: "a.mp4"})
		if !errors.Is(err, shared.ErrTaskNotFound) {
			t.Errorf("expected ErrTaskNotFound, got %v", err)
		}
	})
}

func TestCommentRepositoryErrors(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewCommentRepository(db)
	task := createTask(t, db, "Launch")

	if err := repo.Create(&models.Comment{TaskID: task.ID, Author: "system"}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty body, got %v", err)
	}
	if err := repo.Create(&models.Comment{TaskID: "missing", Author: "system", Body: "x"}); !errors.Is(err, shared.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestChannelRepositoryErrors(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		ch := models.NewChannel("UC1", "Studio", "not-an-email")
		if err := NewChannelRepository(db).Create(ch); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("DuplicateExternalID", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		createChannel(t, db, "UC1", "a@example.com")
		if err := NewChannelRepository(db).Create(models.NewChannel("UC1", "Again", "b@example.com")); err == nil {
			t.Fatal("expected error for duplicate external id")
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewChannelRepository(db)
		if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrChannelNotFound) {
			t.Errorf("expected ErrChannelNotFound, got %v", err)
		}
		if err := repo.SetActive("missing", true); !errors.Is(err, shared.ErrChannelNotFound) {
			t.Errorf("expected ErrChannelNotFound, got %v", err)
		}
	})
}

func TestPublishRepositoryErrors(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	repo := NewPublishRepository(db)

	if err := repo.Create(&models.UploadOutcome{}); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing id, got %v", err)
	}
	if _, err := repo.Get("missing"); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Update(&models.UploadOutcome{RequestID: "missing"}); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.Create(&models.UploadOutcome{RequestID: "r1", TaskID: "missing", ChannelID: "missing", State: models.StateValidating}); err == nil {
		t.Error("expected foreign key error for unknown task")
	}
}
