package config

const (
	defaultConfigPath               = "~/.config/ownership/config.toml"
	projectConfigName               = "ownership.toml"
	defaultDataDir                  = "~/.local/share/ownership"
	defaultLogDir                   = "~/.local/share/ownership/logs"
	defaultWatchDir                 = "~/.local/share/ownership/inbox"
	defaultMaxDistance              = 12
	defaultDuplicateConfidence      = 95.0
	defaultConfidenceScale          = 100.0 / 64
	defaultIndexBands               = 4
	defaultMaxContentBytes          = 256 << 20
	defaultNotifyRequestTimeout     = 10
	defaultNotifyDedupWindowSeconds = 600
	defaultWatchSettleSeconds       = 2
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			WatchDir: defaultWatchDir,
		},
		Matching: Matching{
			MaxDistance:         defaultMaxDistance,
			DuplicateConfidence: defaultDuplicateConfidence,
			ConfidenceScale:     defaultConfidenceScale,
			IndexBands:          defaultIndexBands,
			MaxContentBytes:     defaultMaxContentBytes,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			Duplicate:          true,
			Similar:            true,
			Registered:         false,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindowSeconds,
		},
		Watch: Watch{
			SettleSeconds: defaultWatchSettleSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
