package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"ownership/internal/config"
	"ownership/internal/ingest"
	"ownership/internal/logging"
	"ownership/internal/matching"
	"ownership/internal/notifications"
	"ownership/internal/preflight"
	"ownership/internal/recordstore"
	"ownership/internal/watcher"
)

// Daemon coordinates the background services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *recordstore.Store
	engine   *matching.Engine
	pipeline *ingest.Pipeline
	notifier notifications.Service

	lockPath string
	lock     *flock.Flock

	reloads singleflight.Group

	running atomic.Bool
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	stateMu    sync.RWMutex
	startedAt  time.Time
	lastReload time.Time
	loaded     int
	lastError  string
	watching   bool
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool               `json:"running"`
	PID           int                `json:"pid"`
	StartedAt     time.Time          `json:"startedAt,omitzero"`
	LastReload    time.Time          `json:"lastReload,omitzero"`
	LoadedRecords int                `json:"loadedRecords"`
	Watching      bool               `json:"watching"`
	WatchDir      string             `json:"watchDir,omitempty"`
	DatabasePath  string             `json:"databasePath"`
	LockPath      string             `json:"lockPath"`
	LastError     string             `json:"lastError,omitempty"`
	Stats         matching.Stats     `json:"stats"`
	Checks        []preflight.Result `json:"checks,omitempty"`
}

// New constructs a daemon with initialized dependencies. The notifier may be
// nil, in which case one is built from cfg.
func New(cfg *config.Config, store *recordstore.Store, logger *slog.Logger, notifier notifications.Service) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and record store")
	}
	logger = logging.NewComponentLogger(logger, "daemon")
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	engine := ingest.NewEngine(cfg)
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		engine:   engine,
		pipeline: ingest.NewPipeline(engine, store, notifier, logger, ingest.OptionsFromConfig(cfg)),
		notifier: notifier,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}, nil
}

// Start acquires the daemon lock, runs preflight checks, loads the corpus
// and starts the inbox watcher when enabled.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ownership daemon instance is already running")
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg)); len(failed) > 0 {
		_ = d.lock.Unlock()
		names := make([]string, 0, len(failed))
		for _, f := range failed {
			names = append(names, f.Name+": "+f.Detail)
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(names, "; "))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := d.Reload(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("load corpus: %w", err)
	}

	d.ctx, d.cancel = runCtx, cancel
	d.stateMu.Lock()
	d.startedAt = time.Now().UTC()
	d.watching = d.cfg.Watch.Enabled
	d.stateMu.Unlock()

	if d.cfg.Watch.Enabled {
		w := watcher.New(d.cfg.Paths.WatchDir, d.cfg.SettleDelay(), d.logger)
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := w.Run(runCtx, d.handleInbox); err != nil {
				d.recordError(err)
				logging.ErrorWithContext(d.logger, "inbox watcher stopped", "watch_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check paths.watch_dir exists and is readable"),
				)
			}
			d.stateMu.Lock()
			d.watching = false
			d.stateMu.Unlock()
		}()
	}

	d.running.Store(true)
	d.logger.Info("ownership daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.Int("records", d.engine.Index().Len()),
		logging.Bool("watching", d.cfg.Watch.Enabled),
	)
	return nil
}

func (d *Daemon) handleInbox(ctx context.Context, path string) error {
	_, err := d.pipeline.ProcessInbox(ctx, path)
	if err != nil {
		d.recordError(err)
	}
	return err
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next daemon start may report another instance"),
		)
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("ownership daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Engine exposes the matching engine.
func (d *Daemon) Engine() *matching.Engine {
	return d.engine
}

// Reload replaces the index with the store's current corpus. Concurrent
// callers share a single load.
func (d *Daemon) Reload(ctx context.Context) (int, error) {
	v, err, shared := d.reloads.Do("reload", func() (any, error) {
		start := time.Now()
		var n int
		err := d.pipeline.Exclusive(func() error {
			var loadErr error
			n, loadErr = d.engine.Index().BulkLoad(ctx, d.store)
			return loadErr
		})
		if err != nil {
			return 0, err
		}
		d.stateMu.Lock()
		d.lastReload = time.Now().UTC()
		d.loaded = n
		d.stateMu.Unlock()
		d.logger.Info("corpus loaded",
			logging.String(logging.FieldEventType, "corpus_loaded"),
			logging.Int("records", n),
			logging.Duration("elapsed", time.Since(start)),
		)
		return n, nil
	})
	if err != nil {
		d.recordError(err)
		return 0, err
	}
	if shared {
		d.logger.Debug("reload shared with concurrent caller")
	}
	return v.(int), nil
}

// Check runs a batch of fingerprint requests against the index.
func (d *Daemon) Check(reqs []matching.Request) matching.BatchResult {
	return d.engine.CheckBatch(reqs)
}

// CheckFile fingerprints a file on the daemon host and reports its verdict.
func (d *Daemon) CheckFile(ctx context.Context, path string) (ingest.Outcome, error) {
	return d.pipeline.Inspect(ctx, path)
}

// Register records a file on the daemon host for owner.
func (d *Daemon) Register(ctx context.Context, path, owner string) (ingest.Outcome, error) {
	out, err := d.pipeline.Register(ctx, path, owner)
	if err != nil {
		d.recordError(err)
	}
	return out, err
}

// Stats reports index size and verdict counters.
func (d *Daemon) Stats() matching.Stats {
	return d.engine.Stats()
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status. includeChecks adds preflight results.
func (d *Daemon) Status(ctx context.Context, includeChecks bool) Status {
	d.stateMu.RLock()
	status := Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		StartedAt:     d.startedAt,
		LastReload:    d.lastReload,
		LoadedRecords: d.loaded,
		Watching:      d.watching && d.running.Load(),
		DatabasePath:  d.store.Path(),
		LockPath:      d.lockPath,
		LastError:     d.lastError,
	}
	d.stateMu.RUnlock()
	if d.cfg.Watch.Enabled {
		status.WatchDir = d.cfg.Paths.WatchDir
	}
	status.Stats = d.engine.Stats()
	if includeChecks {
		status.Checks = preflight.RunAll(ctx, d.cfg)
	}
	return status
}

func (d *Daemon) recordError(err error) {
	if err == nil {
		return
	}
	d.stateMu.Lock()
	d.lastError = err.Error()
	d.stateMu.Unlock()
}
