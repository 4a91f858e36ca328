package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"ownership/internal/config"
)

const userAgent = "Ownership-Go/0.1.0"

// Service defines the notification surface exposed to ingest and the daemon.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := cfg.NotificationTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventDuplicateDetected: cfg.Notifications.Duplicate,
			EventSimilarDetected:   cfg.Notifications.Similar,
			EventRecordRegistered:  cfg.Notifications.Registered,
			EventError:             cfg.Notifications.Errors,
			EventTest:              true,
		},
		window: time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second,
		sent:   make(map[string]time.Time),
		now:    time.Now,
	}
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
	window   time.Duration

	mu   sync.Mutex
	sent map[string]time.Time
	now  func() time.Time
}

// Publish renders and sends event. Disabled, unknown, and recently sent
// events are dropped silently.
func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || n.client == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	key := dedupKey(event, payload)
	if event != EventTest && !n.claim(key) {
		return nil
	}
	if err := n.send(ctx, msg); err != nil {
		n.release(key)
		return err
	}
	return nil
}

// claim records key as sent unless it was sent inside the window.
func (n *ntfyService) claim(key string) bool {
	if n.window <= 0 {
		return true
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	for k, at := range n.sent {
		if now.Sub(at) >= n.window {
			delete(n.sent, k)
		}
	}
	if _, ok := n.sent[key]; ok {
		return false
	}
	n.sent[key] = now
	return true
}

func (n *ntfyService) release(key string) {
	if n.window <= 0 {
		return
	}
	n.mu.Lock()
	delete(n.sent, key)
	n.mu.Unlock()
}

func (n *ntfyService) send(ctx context.Context, data message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
