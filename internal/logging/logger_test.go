package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ownership/internal/config"
)

func newTestPretty(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(newPrettyHandler(buf, lvl, false))
}

func TestPrettyHandlerHeaderAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPretty(&buf, slog.LevelInfo)

	logger.Info("fingerprint checked",
		String(FieldComponent, "ingest"),
		String(FieldRecordID, "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0"),
		String(FieldIdentityHash, "abc1230000000000"),
		String(FieldStatus, "duplicate"),
		Int64("content_bytes", 2048),
	)

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected header plus fields, got %q", out)
	}
	header := lines[0]
	for _, want := range []string{"INFO", "[ingest]", "rec 0f1e2d3c…", "hash abc12300", "– fingerprint checked"} {
		if !strings.Contains(header, want) {
			t.Fatalf("header %q missing %q", header, want)
		}
	}
	if !strings.Contains(lines[1], "- Status: duplicate") {
		t.Fatalf("expected status highlighted first, got %q", lines[1])
	}
	if !strings.Contains(out, "Content bytes: 2.0 KiB") {
		t.Fatalf("expected humanized byte count, got %q", out)
	}
	if strings.Contains(out, "Component:") {
		t.Fatalf("component should only appear in the header: %q", out)
	}
}

func TestPrettyHandlerHidesExtraFieldsAtInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPretty(&buf, slog.LevelInfo)

	attrs := make([]any, 0, 12)
	for i := range 12 {
		attrs = append(attrs, slog.Int("field_"+string(rune('a'+i)), i))
	}
	logger.Info("many", attrs...)

	if !strings.Contains(buf.String(), "+ 4 more fields hidden") {
		t.Fatalf("expected hidden count, got %q", buf.String())
	}
}

func TestPrettyHandlerDebugShowsAllFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPretty(&buf, slog.LevelDebug)

	attrs := make([]any, 0, 12)
	for i := range 12 {
		attrs = append(attrs, slog.Int("field_"+string(rune('a'+i)), i))
	}
	logger.Debug("many", attrs...)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug output should not hide fields: %q", out)
	}
	if !strings.Contains(out, "field_l: 11") {
		t.Fatalf("expected last field, got %q", out)
	}
}

func TestPrettyHandlerGroupsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestPretty(&buf, slog.LevelWarn)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	logger.WithGroup("store").Warn("slow query", slog.Int("attempt", 2))
	if !strings.Contains(buf.String(), "Store.attempt: 2") {
		t.Fatalf("expected grouped key, got %q", buf.String())
	}
}

func TestFormatSubject(t *testing.T) {
	tests := []struct {
		recordID string
		hash     string
		want     string
	}{
		{"", "", ""},
		{"abc", "", "rec abc"},
		{"", "0123456789abcdef", "hash 01234567"},
		{"123456789", "ff", "rec 12345678… · hash ff"},
	}
	for _, tt := range tests {
		if got := FormatSubject(tt.recordID, tt.hash); got != tt.want {
			t.Fatalf("FormatSubject(%q, %q) = %q, want %q", tt.recordID, tt.hash, got, tt.want)
		}
	}
}

func TestJSONHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))
	logger.Warn("hello", String(FieldOwner, "alice@example.com"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("level = %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload[FieldOwner] != "alice@example.com" {
		t.Fatalf("owner = %v", payload[FieldOwner])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Logging.Level = "debug"

	logger, err := NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Debug("written", String(FieldComponent, "test"))

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, LogFileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"written"`) {
		t.Fatalf("log file missing entry: %s", data)
	}
}

func TestTeeHandler(t *testing.T) {
	if _, ok := TeeHandler(nil, nil).(NoopHandler); !ok {
		t.Fatal("expected NoopHandler when all handlers are nil")
	}

	var info, debug bytes.Buffer
	h1 := slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo})
	h2 := slog.NewJSONHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug})
	if TeeHandler(nil, h1) != h1 {
		t.Fatal("single handler should be returned unwrapped")
	}

	logger := slog.New(TeeHandler(h1, h2)).With(String(FieldComponent, "tee"))
	logger.Debug("debug only")
	logger.Info("both")

	if strings.Contains(info.String(), "debug only") {
		t.Fatalf("info handler received debug record: %s", info.String())
	}
	if strings.Count(debug.String(), `"component":"tee"`) != 2 {
		t.Fatalf("debug handler should see both records with attrs: %s", debug.String())
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := WithRecordID(WithRequestID(context.Background(), "req-1"), "rec-9")

	WithContext(ctx, base).Info("tagged")

	out := buf.String()
	if !strings.Contains(out, `"record_id":"rec-9"`) || !strings.Contains(out, `"correlation_id":"req-1"`) {
		t.Fatalf("missing context fields: %s", out)
	}
	if got := WithContext(context.Background(), base); got != base {
		t.Fatal("expected base logger when context carries nothing")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WarnWithContext(logger, "notify failed", "notification_failed", String(FieldImpact, "no push sent"))

	out := buf.String()
	for _, want := range []string{`"event_type":"notification_failed"`, `"error_hint":"check logs for details"`, `"impact":"no push sent"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %s", want, out)
		}
	}
}
