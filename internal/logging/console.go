package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	consoleTimestampLayout = "2006-01-02 15:04:05"
	// infoFieldLimit caps the bullet list printed under an INFO line.
	infoFieldLimit = 8
)

// highlightKeys are printed first, in this order, when present.
var highlightKeys = []string{
	FieldEventType,
	FieldStatus,
	FieldCategory,
	FieldOwner,
	FieldSourcePath,
	FieldMatches,
	FieldConfidence,
	FieldErrorHint,
	FieldImpact,
	"error",
}

type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes a header line
//
//	2026-01-02 15:04:05 INFO [component] subject – message
//
// followed by one indented line per attribute.
func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVs(kvs)

	var component, recordID, hash string
	rest := make([]kv, 0, len(kvs))
	for _, item := range kvs {
		switch item.key {
		case FieldComponent:
			component = attrString(item.value)
			continue
		case FieldRecordID:
			recordID = attrString(item.value)
		case FieldIdentityHash:
			hash = attrString(item.value)
		}
		rest = append(rest, item)
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(256 + len(rest)*32)
	buf.WriteString(timestamp.In(time.Local).Format(consoleTimestampLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [")
		buf.WriteString(component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(recordID, hash); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.addSource {
		if src := record.Source(); src != nil {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}
	buf.WriteByte('\n')

	if record.Level < slog.LevelInfo {
		for _, item := range rest {
			fmt.Fprintf(&buf, "    %s: %s\n", item.key, formatValueForKey(item.key, item.value))
		}
	} else {
		fields, hidden := selectFields(rest, infoFieldLimit)
		for _, item := range fields {
			fmt.Fprintf(&buf, "    - %s: %s\n", displayLabel(item.key), formatValueForKey(item.key, item.value))
		}
		if hidden > 0 {
			fmt.Fprintf(&buf, "    + %d more field%s hidden\n", hidden, plural(hidden))
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

// FormatSubject renders the record/hash subject shown after the component,
// for example "rec 1b2c…" or "hash abc12300".
func FormatSubject(recordID, hash string) string {
	recordID = strings.TrimSpace(recordID)
	hash = strings.TrimSpace(hash)
	parts := make([]string, 0, 2)
	if recordID != "" {
		if len(recordID) > 8 {
			recordID = recordID[:8] + "…"
		}
		parts = append(parts, "rec "+recordID)
	}
	if hash != "" {
		if len(hash) > 8 {
			hash = hash[:8]
		}
		parts = append(parts, "hash "+hash)
	}
	return strings.Join(parts, " · ")
}

type kv struct {
	key   string
	value slog.Value
}

// selectFields orders highlighted keys first and keeps at most limit entries.
func selectFields(items []kv, limit int) ([]kv, int) {
	used := make([]bool, len(items))
	out := make([]kv, 0, min(limit, len(items)))
	for _, key := range highlightKeys {
		for idx, item := range items {
			if !used[idx] && item.key == key {
				used[idx] = true
				out = append(out, item)
			}
		}
	}
	for idx, item := range items {
		if !used[idx] {
			out = append(out, item)
		}
	}
	if len(out) <= limit {
		return out, 0
	}
	return out[:limit], len(out) - limit
}

func dedupeKVs(items []kv) []kv {
	if len(items) < 2 {
		return items
	}
	positions := make(map[string]int, len(items))
	out := make([]kv, 0, len(items))
	for _, item := range items {
		if item.key == "" {
			continue
		}
		if pos, ok := positions[item.key]; ok {
			out[pos].value = item.value
			continue
		}
		positions[item.key] = len(out)
		out = append(out, item)
	}
	return out
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func displayLabel(key string) string {
	label := strings.ReplaceAll(key, "_", " ")
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if strings.HasSuffix(key, "_bytes") {
		switch v.Kind() {
		case slog.KindInt64:
			if n := v.Int64(); n >= 0 {
				return humanize.IBytes(uint64(n))
			}
		case slog.KindUint64:
			return humanize.IBytes(v.Uint64())
		}
	}
	return formatValue(v)
}

func attrString(v slog.Value) string {
	v = v.Resolve()
	if v.Kind() == slog.KindString {
		return v.String()
	}
	if err, ok := v.Any().(error); ok && v.Kind() == slog.KindAny {
		return err.Error()
	}
	return formatValue(v)
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(consoleTimestampLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	if s == "" {
		return true
	}
	for _, r := range s {
		if r < ' ' || r == '"' {
			return true
		}
	}
	return false
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
