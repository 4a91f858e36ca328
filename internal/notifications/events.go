package notifications

import (
	"fmt"
	"strconv"
	"strings"
)

// Event identifies a notification type.
type Event string

const (
	EventDuplicateDetected Event = "duplicate_detected"
	EventSimilarDetected   Event = "similar_detected"
	EventRecordRegistered  Event = "record_registered"
	EventError             Event = "error"
	EventTest              Event = "test"
)

// Payload carries event fields. Well-known keys are listed below; unknown
// keys are ignored.
type Payload map[string]any

const (
	KeyRecordID     = "recordId"
	KeyIdentityHash = "identityHash"
	KeyCategory     = "category"
	KeyOwner        = "owner"
	KeyRequester    = "requester"
	KeySource       = "source"
	KeyConfidence   = "confidence"
	KeyMatches      = "matches"
	KeyError        = "error"
	KeyContext      = "context"
)

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func render(event Event, p Payload) (message, bool) {
	switch event {
	case EventDuplicateDetected:
		var b strings.Builder
		fmt.Fprintf(&b, "Duplicate of record %s (%s confidence)", shortID(p.text(KeyRecordID)), percent(p.number(KeyConfidence)))
		writeLine(&b, "Owner", p.text(KeyOwner))
		writeLine(&b, "Submitted by", p.text(KeyRequester))
		writeLine(&b, "File", p.text(KeySource))
		return message{
			title:    "Ownership - Duplicate Detected",
			body:     b.String(),
			tags:     []string{"ownership", "duplicate", "alert"},
			priority: "high",
		}, true
	case EventSimilarDetected:
		var b strings.Builder
		n := p.count(KeyMatches)
		fmt.Fprintf(&b, "Similar to %d record%s; closest %s at %s", n, plural(n), shortID(p.text(KeyRecordID)), percent(p.number(KeyConfidence)))
		writeLine(&b, "Owner", p.text(KeyOwner))
		writeLine(&b, "Submitted by", p.text(KeyRequester))
		writeLine(&b, "File", p.text(KeySource))
		return message{
			title: "Ownership - Similar Content",
			body:  b.String(),
			tags:  []string{"ownership", "similar"},
		}, true
	case EventRecordRegistered:
		var b strings.Builder
		fmt.Fprintf(&b, "Registered %s content as %s", nonEmpty(p.text(KeyCategory), "unknown"), shortID(p.text(KeyRecordID)))
		writeLine(&b, "Owner", p.text(KeyOwner))
		writeLine(&b, "File", p.text(KeySource))
		return message{
			title: "Ownership - Registered",
			body:  b.String(),
			tags:  []string{"ownership", "registered"},
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := p.text(KeyContext); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(nonEmpty(p.text(KeyError), "unknown"))
		return message{
			title:    "Ownership - Error",
			body:     b.String(),
			tags:     []string{"ownership", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Ownership - Test",
			body:     "Notification system test",
			tags:     []string{"ownership", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

// dedupKey identifies repeats of the same alert.
func dedupKey(event Event, p Payload) string {
	return strings.Join([]string{
		string(event),
		p.text(KeyIdentityHash),
		p.text(KeyRecordID),
		p.text(KeyRequester),
		p.text(KeyError),
	}, "|")
}

func (p Payload) text(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case error:
		return strings.TrimSpace(v.Error())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (p Payload) number(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

func (p Payload) count(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func writeLine(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteByte('\n')
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
}

func shortID(id string) string {
	if id == "" {
		return "(unknown)"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64) + "%"
}

func nonEmpty(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
