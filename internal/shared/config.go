package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	YouTube   YouTubeConfig   `toml:"youtube"`
	Thumbnail ThumbnailConfig `toml:"thumbnail"`
	Workers   WorkersConfig   `toml:"workers"`
	Storage   StorageConfig   `toml:"storage"`
	Secrets   SecretsConfig   `toml:"secrets"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
}

// YouTubeConfig contains settings for the video hosting API.
type YouTubeConfig struct {
	Project         string   `toml:"project"`           // secret scope
	ClientSecretKey string   `toml:"client_secret_key"` // name of the shared OAuth client blob
	ChunkSizeMB     int      `toml:"chunk_size_mb"`
	UploadTimeout   Duration `toml:"upload_timeout"`
	APITimeout      Duration `toml:"api_timeout"`
	WatchURL        string   `toml:"watch_url"`
}

// ThumbnailConfig bounds the thumbnail fetch.
type ThumbnailConfig struct {
	ConnectTimeout Duration `toml:"connect_timeout"`
	ReadTimeout    Duration `toml:"read_timeout"`
	MaxBytes       int64    `toml:"max_bytes"`
}

// WorkersConfig sizes the publish worker pool.
type WorkersConfig struct {
	Size          int `toml:"size"`
	Queue         int `toml:"queue"`
	RatePerMinute int `toml:"rate_per_minute"`
}

// StorageConfig selects the binary asset store.
type StorageConfig struct {
	Kind string   `toml:"kind"` // fs, http or s3
	Root string   `toml:"root"`
	S3   S3Config `toml:"s3"`
}

// S3Config contains S3/MinIO connection settings.
type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Bucket    string `toml:"bucket"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	UseSSL    bool   `toml:"use_ssl"`
}

// SecretsConfig selects the secret store backend.
type SecretsConfig struct {
	Kind      string `toml:"kind"` // db or env
	EnvPrefix string `toml:"env_prefix"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	RedirectURL string `toml:"redirect_url"`
}

// Duration is a [time.Duration] that decodes from TOML strings like "30s" or "6h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ChunkSize returns the resumable upload chunk size in bytes.
func (c YouTubeConfig) ChunkSize() int {
	if c.ChunkSizeMB <= 0 {
		return 16 << 20
	}
	return c.ChunkSizeMB << 20
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
