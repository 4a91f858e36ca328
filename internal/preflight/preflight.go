package preflight

import (
	"context"

	"ownership/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckRecordStore(cfg.DatabasePath()),
	}

	if cfg.Watch.Enabled {
		results = append(results, CheckDirectoryAccess("Inbox directory", cfg.Paths.WatchDir))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfyFromConfig(ctx, cfg))
	}

	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
