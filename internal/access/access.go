// Package access gives CLI commands one interface over the fingerprint
// service whether a daemon is running or the record store is opened directly.
package access

import (
	"context"
	"fmt"
	"path/filepath"

	"ownership/internal/ingest"
	"ownership/internal/ipc"
	"ownership/internal/matching"
)

// Access provides the fingerprint operations regardless of IPC or direct store backing.
type Access interface {
	CheckFile(ctx context.Context, path string) (ingest.Outcome, error)
	Register(ctx context.Context, path, owner string) (ingest.Outcome, error)
	Stats(ctx context.Context) (matching.Stats, error)
	// Remote reports whether calls are served by a running daemon.
	Remote() bool
}

// NewIPCAccess returns an Access backed by daemon IPC.
func NewIPCAccess(client *ipc.Client) Access {
	return &ipcAccess{client: client}
}

// NewLocalAccess returns an Access backed by an in-process pipeline. The
// caller is responsible for loading the pipeline's index.
func NewLocalAccess(pipeline *ingest.Pipeline) Access {
	return &localAccess{pipeline: pipeline}
}

type ipcAccess struct {
	client *ipc.Client
}

// The daemon resolves paths against its own working directory.
func absolute(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}

func (a *ipcAccess) CheckFile(_ context.Context, path string) (ingest.Outcome, error) {
	abs, err := absolute(path)
	if err != nil {
		return ingest.Outcome{}, err
	}
	return a.client.CheckFile(abs)
}

func (a *ipcAccess) Register(_ context.Context, path, owner string) (ingest.Outcome, error) {
	abs, err := absolute(path)
	if err != nil {
		return ingest.Outcome{}, err
	}
	return a.client.Register(abs, owner)
}

func (a *ipcAccess) Stats(_ context.Context) (matching.Stats, error) {
	return a.client.Stats()
}

func (a *ipcAccess) Remote() bool { return true }

type localAccess struct {
	pipeline *ingest.Pipeline
}

func (a *localAccess) CheckFile(ctx context.Context, path string) (ingest.Outcome, error) {
	return a.pipeline.Inspect(ctx, path)
}

func (a *localAccess) Register(ctx context.Context, path, owner string) (ingest.Outcome, error) {
	return a.pipeline.Register(ctx, path, owner)
}

func (a *localAccess) Stats(_ context.Context) (matching.Stats, error) {
	return a.pipeline.Engine().Stats(), nil
}

func (a *localAccess) Remote() bool { return false }
