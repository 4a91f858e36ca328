// Package daemonctl holds the CLI-side helpers for talking to a running
// daemon, with offline fallbacks when none is reachable.
package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"ownership/internal/config"
	"ownership/internal/daemon"
	"ownership/internal/fingerprint"
	"ownership/internal/ipc"
	"ownership/internal/preflight"
	"ownership/internal/recordstore"
)

// ErrDaemonNotRunning reports that no daemon answered on the socket.
var ErrDaemonNotRunning = errors.New("daemon not running")

// Connect dials the daemon socket. A missing socket or refused connection is
// reported as ErrDaemonNotRunning.
func Connect(socketPath string) (*ipc.Client, error) {
	client, err := ipc.Dial(socketPath)
	if err == nil {
		return client, nil
	}
	if isDaemonUnavailable(err) {
		return nil, fmt.Errorf("%w: socket %s", ErrDaemonNotRunning, socketPath)
	}
	return nil, fmt.Errorf("connect to daemon: %w", err)
}

// WaitForClient waits for IPC socket availability and returns a connected client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon did not become reachable: %w", lastErr)
}

// Snapshot is what `ownership status` renders.
type Snapshot struct {
	DaemonRunning bool                         `json:"daemonRunning"`
	Daemon        *daemon.Status               `json:"daemon,omitempty"`
	StoredRecords int                          `json:"storedRecords"`
	PerCategory   map[fingerprint.Category]int `json:"perCategoryCounts"`
	Checks        []preflight.Result           `json:"checks"`
}

// BuildSnapshot asks the daemon for its status. When the daemon is not
// reachable, record counts come from the store and checks run locally.
func BuildSnapshot(ctx context.Context, socketPath string, cfg *config.Config) (*Snapshot, error) {
	if cfg == nil {
		return nil, errors.New("configuration not available")
	}
	snap := &Snapshot{}

	if client, err := Connect(socketPath); err == nil {
		status, statusErr := client.Status(true)
		_ = client.Close()
		if statusErr == nil {
			snap.DaemonRunning = status.Running
			snap.Daemon = &status
			snap.Checks = status.Checks
			snap.StoredRecords = status.Stats.TotalRecords
			snap.PerCategory = status.Stats.PerCategory
			return snap, nil
		}
	} else if !errors.Is(err, ErrDaemonNotRunning) {
		return nil, err
	}

	snap.Checks = preflight.RunAll(ctx, cfg)
	queryCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, statErr := os.Stat(cfg.DatabasePath()); statErr != nil {
		return snap, nil
	}
	store, err := recordstore.OpenPath(cfg.DatabasePath())
	if err != nil {
		return snap, nil
	}
	defer store.Close()
	if n, err := store.Count(queryCtx); err == nil {
		snap.StoredRecords = n
	}
	if counts, err := store.CountByCategory(queryCtx); err == nil {
		snap.PerCategory = counts
	}
	return snap, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
