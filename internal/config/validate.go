package config

import (
	"errors"
	"fmt"
	"strings"

	"ownership/internal/fingerprint"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateOwnership(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateMatching() error {
	m := c.Matching
	if m.MaxDistance < 1 || m.MaxDistance > 64 {
		return errors.New("matching.max_distance must be between 1 and 64")
	}
	if m.DuplicateConfidence <= 0 || m.DuplicateConfidence > 100 {
		return errors.New("matching.duplicate_confidence must be in (0, 100]")
	}
	if m.ConfidenceScale <= 0 {
		return errors.New("matching.confidence_scale must be positive")
	}
	switch m.IndexBands {
	case 1, 2, 4, 8:
	default:
		return fmt.Errorf("matching.index_bands must be one of 1, 2, 4, 8 (got %d)", m.IndexBands)
	}
	if m.BatchWorkers < 0 {
		return errors.New("matching.batch_workers must be >= 0 (0 uses GOMAXPROCS)")
	}
	if m.MaxContentBytes <= 0 {
		return errors.New("matching.max_content_bytes must be positive")
	}
	return nil
}

func (c *Config) validateOwnership() error {
	if c.Ownership.DefaultOwner == "" {
		return nil
	}
	if _, err := fingerprint.ParseOwnerRef(c.Ownership.DefaultOwner); err != nil {
		return fmt.Errorf("ownership.default_owner: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if err := ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateWatch() error {
	if c.Watch.SettleSeconds < 0 {
		return errors.New("watch.settle_seconds must be >= 0")
	}
	if c.Watch.Enabled && strings.TrimSpace(c.Paths.WatchDir) == "" {
		return errors.New("paths.watch_dir must be set when watch.enabled is true")
	}
	if c.Watch.Enabled && strings.TrimSpace(c.Ownership.DefaultOwner) == "" {
		return errors.New("ownership.default_owner must be set when watch.enabled is true (inbox files are registered to it)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
