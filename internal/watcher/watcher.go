// Package watcher monitors the inbox directory and hands settled files to a
// handler.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ownership/internal/logging"
)

const (
	defaultRetryDelay = 30 * time.Second
	maxTick           = time.Second
	minTick           = 10 * time.Millisecond
)

// Handler processes one settled file. A returned error leaves the file
// tracked so it is retried after the retry delay if it still exists.
type Handler func(ctx context.Context, path string) error

// Watcher tracks files in a single directory until they stop changing.
type Watcher struct {
	dir    string
	settle time.Duration
	retry  time.Duration
	logger *slog.Logger

	// path -> time the file becomes eligible
	state   map[string]time.Time
	stateMu sync.Mutex
}

// New creates a watcher for dir. Files are handed over once they have been
// quiet for settle.
func New(dir string, settle time.Duration, logger *slog.Logger) *Watcher {
	if settle < 0 {
		settle = 0
	}
	return &Watcher{
		dir:    dir,
		settle: settle,
		retry:  defaultRetryDelay,
		logger: logging.NewComponentLogger(logger, "watcher"),
		state:  make(map[string]time.Time),
	}
}

// SetRetryDelay changes how long a failed file waits before another attempt.
func (w *Watcher) SetRetryDelay(d time.Duration) {
	if d > 0 {
		w.retry = d
	}
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches until ctx is cancelled. Files already in the directory are
// picked up as if they had just been written. Handlers run one at a time on
// the calling goroutine's loop.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	if handle == nil {
		return errors.New("watcher: handler is nil")
	}
	absDir, err := filepath.Abs(w.dir)
	if err != nil {
		return fmt.Errorf("resolve watch dir: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return fmt.Errorf("stat watch dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch dir %s is not a directory", absDir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fsWatcher.Close()
	if err := fsWatcher.Add(absDir); err != nil {
		return fmt.Errorf("watch %s: %w", absDir, err)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return fmt.Errorf("scan %s: %w", absDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && candidate(entry.Name()) {
			w.touch(filepath.Join(absDir, entry.Name()), time.Now())
		}
	}

	w.logger.Info("watching inbox",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String("dir", absDir),
		logging.Duration("settle", w.settle),
		logging.Int("pending", w.Tracked()),
	)

	ticker := time.NewTicker(w.tick())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			w.observe(event)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "fsnotify error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some inbox changes may be missed until the next write"),
			)

		case now := <-ticker.C:
			w.dispatch(ctx, now, handle)
		}
	}
}

func (w *Watcher) tick() time.Duration {
	t := w.settle / 2
	if t > maxTick {
		t = maxTick
	}
	if t < minTick {
		t = minTick
	}
	return t
}

func (w *Watcher) observe(event fsnotify.Event) {
	if !candidate(filepath.Base(event.Name)) {
		return
	}
	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.forget(event.Name)
	case event.Op&(fsnotify.Write|fsnotify.Create) != 0:
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return
		}
		w.touch(event.Name, time.Now())
	}
}

// dispatch hands every settled file to handle.
func (w *Watcher) dispatch(ctx context.Context, now time.Time, handle Handler) {
	for _, path := range w.settled(now) {
		if ctx.Err() != nil {
			return
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if err := handle(ctx, path); err != nil {
			if _, statErr := os.Stat(path); statErr == nil {
				w.schedule(path, time.Now().Add(w.retry))
			}
			w.logger.Debug("inbox handler failed",
				logging.String(logging.FieldSourcePath, path),
				logging.Error(err),
			)
		}
	}
}

// settled removes and returns files that have been quiet long enough.
func (w *Watcher) settled(now time.Time) []string {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	var ready []string
	for path, at := range w.state {
		if !now.Before(at) {
			ready = append(ready, path)
			delete(w.state, path)
		}
	}
	return ready
}

func (w *Watcher) touch(path string, modified time.Time) {
	w.schedule(path, modified.Add(w.settle))
}

func (w *Watcher) schedule(path string, at time.Time) {
	w.stateMu.Lock()
	w.state[path] = at
	w.stateMu.Unlock()
}

func (w *Watcher) forget(path string) {
	w.stateMu.Lock()
	delete(w.state, path)
	w.stateMu.Unlock()
}

// Tracked returns the number of files waiting to settle.
func (w *Watcher) Tracked() int {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return len(w.state)
}

// candidate skips hidden files and common partial-download suffixes.
func candidate(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	for _, suffix := range []string{".part", ".partial", ".tmp", ".crdownload", "~"} {
		if strings.HasSuffix(name, suffix) {
			return false
		}
	}
	return true
}
