package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	envNtfyTopic = "OWNERSHIP_NTFY_TOPIC"
	envOwner     = "OWNERSHIP_OWNER"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeMatching()
	c.normalizeOwnership()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		c.Paths.WatchDir = defaultWatchDir
	}
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMatching() {
	if c.Matching.ConfidenceScale == 0 {
		c.Matching.ConfidenceScale = defaultConfidenceScale
	}
	if c.Matching.IndexBands == 0 {
		c.Matching.IndexBands = defaultIndexBands
	}
	if c.Matching.MaxContentBytes == 0 {
		c.Matching.MaxContentBytes = defaultMaxContentBytes
	}
}

func (c *Config) normalizeOwnership() {
	if value, ok := os.LookupEnv(envOwner); ok && strings.TrimSpace(value) != "" {
		c.Ownership.DefaultOwner = value
	}
	c.Ownership.DefaultOwner = strings.TrimSpace(c.Ownership.DefaultOwner)
}

func (c *Config) normalizeNotifications() {
	if value, ok := os.LookupEnv(envNtfyTopic); ok && strings.TrimSpace(value) != "" {
		c.Notifications.NtfyTopic = value
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout == 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
