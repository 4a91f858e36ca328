package preflight

import (
	"context"

	"github.com/dustin/go-humanize"

	"ownership/internal/config"
)

// CheckNtfyFromConfig evaluates notification status from config and connectivity.
func CheckNtfyFromConfig(ctx context.Context, cfg *config.Config) Result {
	const name = "ntfy"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if cfg.Notifications.NtfyTopic == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled", Optional: true}
	}
	check := CheckNtfy(ctx, cfg.Notifications.NtfyTopic)
	check.Optional = true
	return check
}

func sizeLabel(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
