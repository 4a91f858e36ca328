// Package daemonrun wires the daemon process: logging, record store, daemon,
// IPC server and signal handling.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/google/uuid"

	"ownership/internal/config"
	"ownership/internal/daemon"
	"ownership/internal/ipc"
	"ownership/internal/logging"
	"ownership/internal/notifications"
	"ownership/internal/recordstore"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides the configured level when set.
	LogLevel string
	// SocketPath overrides the configured socket location when set.
	SocketPath string
}

// PIDFileName is written next to the lock file while the daemon runs.
const PIDFileName = "ownership.pid"

// Run starts the ownership daemon and blocks until cmdCtx is canceled or the
// process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if opts.LogLevel != "" {
		clone := *cfg
		clone.Logging.Level = opts.LogLevel
		cfg = &clone
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String(logging.FieldCorrelationID, sessionID))
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := recordstore.Open(cfg)
	if err != nil {
		logging.ErrorWithContext(logger, "open record store", "record_store_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.data_dir permissions and database integrity"),
		)
		return err
	}

	d, err := daemon.New(cfg, store, logger, notifications.NewService(cfg))
	if err != nil {
		store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check configuration and record store access"),
			logging.String(logging.FieldImpact, "no fingerprints will be served"),
		)
		return err
	}

	socketPath := opts.SocketPath
	if socketPath == "" {
		socketPath = cfg.SocketPath()
	}
	ipcServer, err := ipc.NewServer(signalCtx, socketPath, d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("ownership daemon shutting down", logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("data_dir", cfg.Paths.DataDir),
		logging.Int("max_distance", cfg.Matching.MaxDistance),
		logging.Float64("duplicate_confidence", cfg.Matching.DuplicateConfidence),
		logging.Int("index_bands", cfg.Matching.IndexBands),
		logging.Int64("max_content_bytes", cfg.Matching.MaxContentBytes),
		logging.Bool("watch_enabled", cfg.Watch.Enabled),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
	)
}
