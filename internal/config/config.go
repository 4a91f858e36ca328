package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	databaseFileName = "records.db"
	socketFileName   = "ownership.sock"
	lockFileName     = "ownership.lock"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	WatchDir string `toml:"watch_dir"`
}

// Matching contains the thresholds handed to the matching engine and index.
type Matching struct {
	MaxDistance         int     `toml:"max_distance"`
	DuplicateConfidence float64 `toml:"duplicate_confidence"`
	ConfidenceScale     float64 `toml:"confidence_scale"`
	IndexBands          int     `toml:"index_bands"`
	BatchWorkers        int     `toml:"batch_workers"`
	MaxContentBytes     int64   `toml:"max_content_bytes"`
}

// Ownership contains defaults applied when registering content.
type Ownership struct {
	DefaultOwner string `toml:"default_owner"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeout     int    `toml:"request_timeout"`
	Duplicate          bool   `toml:"duplicate"`
	Similar            bool   `toml:"similar"`
	Registered         bool   `toml:"registered"`
	Errors             bool   `toml:"errors"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Watch configures the inbox directory watcher run by the daemon.
type Watch struct {
	Enabled       bool `toml:"enabled"`
	SettleSeconds int  `toml:"settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the ownership service.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and inbox directories
//   - Matching: near-duplicate thresholds and batch sizing
//   - Ownership: default owner for registrations
//   - Notifications: ntfy push notification settings
//   - Watch: inbox watcher toggle and settle delay
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Matching      Matching      `toml:"matching"`
	Ownership     Ownership     `toml:"ownership"`
	Notifications Notifications `toml:"notifications"`
	Watch         Watch         `toml:"watch"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// inbox is only created when the watcher is enabled.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Watch.Enabled && strings.TrimSpace(c.Paths.WatchDir) != "" {
		for _, dir := range []string{c.Paths.WatchDir, c.ProcessedDir(), c.RejectedDir()} {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create inbox directory %q: %w", dir, err)
			}
		}
	}
	return nil
}

// DatabasePath is the SQLite record store location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, databaseFileName)
}

// SocketPath is the daemon's JSON-RPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, socketFileName)
}

// LockPath is the daemon's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, lockFileName)
}

// ProcessedDir receives inbox files that were registered or matched.
func (c *Config) ProcessedDir() string {
	return filepath.Join(c.Paths.WatchDir, "processed")
}

// RejectedDir receives inbox files that could not be fingerprinted.
func (c *Config) RejectedDir() string {
	return filepath.Join(c.Paths.WatchDir, "rejected")
}

// SettleDelay is how long an inbox file must stay unchanged before ingest.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Watch.SettleSeconds) * time.Second
}

// NotificationTimeout bounds a single ntfy request.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
