package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./ytpub.db" {
			t.Errorf("expected database path ./ytpub.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.YouTube.ClientSecretKey != "youtube-oauth-client" {
			t.Errorf("expected client secret key youtube-oauth-client, got %s", config.YouTube.ClientSecretKey)
		}

		if config.Thumbnail.ConnectTimeout.Duration != 30*time.Second {
			t.Errorf("expected connect timeout 30s, got %v", config.Thumbnail.ConnectTimeout)
		}

		if config.Thumbnail.ReadTimeout.Duration != time.Minute {
			t.Errorf("expected read timeout 60s, got %v", config.Thumbnail.ReadTimeout)
		}

		if config.YouTube.ChunkSize() != 16<<20 {
			t.Errorf("expected 16MiB chunks, got %d", config.YouTube.ChunkSize())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
port = 8080

[youtube]
project = "studio"
upload_timeout = "2h"

[workers]
size = 4
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.YouTube.Project != "studio" {
			t.Errorf("expected project studio, got %s", config.YouTube.Project)
		}

		if config.YouTube.UploadTimeout.Duration != 2*time.Hour {
			t.Errorf("expected upload timeout 2h, got %v", config.YouTube.UploadTimeout)
		}

		if config.Workers.Size != 4 {
			t.Errorf("expected 4 workers, got %d", config.Workers.Size)
		}

		if config.Workers.Queue != 16 {
			t.Errorf("expected default queue 16 to survive partial config, got %d", config.Workers.Queue)
		}
	})

	t.Run("LoadConfig Invalid Duration", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[youtube]\napi_timeout = \"soon\"\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("expected error for invalid duration")
		}
	})
}
