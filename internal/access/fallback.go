package access

import (
	"context"
	"fmt"
	"log/slog"

	"ownership/internal/config"
	"ownership/internal/ingest"
	"ownership/internal/ipc"
	"ownership/internal/notifications"
	"ownership/internal/recordstore"
)

// Session represents an access handle and its cleanup function.
type Session struct {
	Access Access
	close  func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries IPC-backed access first, then opens the record store
// directly and loads a private index from it.
func OpenWithFallback(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	dial func() (*ipc.Client, error),
	openStore func() (*recordstore.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{
				Access: NewIPCAccess(client),
				close:  client.Close,
			}, nil
		}
	}

	if openStore == nil {
		return Session{}, fmt.Errorf("open record store: no store opener configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open record store: %w", err)
	}
	engine := ingest.NewEngine(cfg)
	if _, err := engine.Index().BulkLoad(ctx, store); err != nil {
		store.Close()
		return Session{}, fmt.Errorf("load corpus: %w", err)
	}
	pipeline := ingest.NewPipeline(engine, store, notifications.NewService(cfg), logger, ingest.OptionsFromConfig(cfg))
	return Session{
		Access: NewLocalAccess(pipeline),
		close:  store.Close,
	}, nil
}
