package testsupport

import (
	"path/filepath"
	"testing"

	"ownership/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.WatchDir = filepath.Join(base, "inbox")
	cfgVal.Ownership.DefaultOwner = "owner@example.com"
	cfgVal.Notifications.NtfyTopic = ""
	cfgVal.Watch.SettleSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithNtfyTopic points notifications at topic, typically an httptest URL.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithWatch enables the inbox watcher.
func WithWatch() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Watch.Enabled = true
	}
}

// WithDefaultOwner overrides the owner applied to registrations.
func WithDefaultOwner(owner string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ownership.DefaultOwner = owner
	}
}

// WithMaxContentBytes caps the size of ingested files.
func WithMaxContentBytes(n int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Matching.MaxContentBytes = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
