package logging

import (
	"context"
	"log/slog"
)

const (
	FieldComponent     = "component"
	FieldEventType     = "event_type"
	FieldErrorHint     = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact        = "impact"
	FieldAlert         = "alert"
	FieldRecordID      = "record_id"
	FieldIdentityHash  = "identity_hash"
	FieldCorrelationID = "correlation_id"
	FieldOwner         = "owner"
	FieldCategory      = "content_category"
	FieldStatus        = "status"
	FieldSourcePath    = "source_path"
	FieldMatches       = "matches"
	FieldConfidence    = "confidence"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	recordIDKey
)

// WithRequestID tags ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// WithRecordID tags ctx with the record being processed.
func WithRecordID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, recordIDKey, id)
}

// RecordIDFromContext returns the record identifier, if any.
func RecordIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(recordIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := RecordIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRecordID, id))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
