package shared

import (
	"path/filepath"
	"testing"
)

func TestRefreshTokenKey(t *testing.T) {
	tc := []struct {
		name  string
		email string
		want  string
	}{
		{
			name:  "plain address",
			email: "owner@example.com",
			want:  "youtube-refresh-token-owner-example-com",
		},
		{
			name:  "mixed case and symbols",
			email: "Jane.Doe+yt@Example.com",
			want:  "youtube-refresh-token-jane-doe-yt-example-com",
		},
		{
			name:  "surrounding whitespace",
			email: "  studio@example.org ",
			want:  "youtube-refresh-token-studio-example-org",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := RefreshTokenKey(tt.email)
			if got != tt.want {
				t.Errorf("RefreshTokenKey() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("deterministic", func(t *testing.T) {
		if RefreshTokenKey("a@b.c") != RefreshTokenKey("A@B.C") {
			t.Error("expected key to ignore case")
		}
	})
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ytpub.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	logger.Info("hello")

	if GenerateID() == GenerateID() {
		t.Error("expected unique ids")
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()
	if a == b {
		t.Error("expected distinct state tokens")
	}
	if len(a) != 32 {
		t.Errorf("expected 32 characters, got %d", len(a))
	}
}
