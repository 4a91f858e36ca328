package fingerprint

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation         = errors.New("validation error")
	ErrUnsupportedContent = errors.New("unsupported content")
	ErrDigest             = errors.New("digest error")
	ErrInternalIndex      = errors.New("internal index error")
	ErrNotFound           = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInternalIndex
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to a stable, machine-readable classification used in
// batch results and JSON output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnsupportedContent):
		return "unsupported_content"
	case errors.Is(err, ErrDigest):
		return "digest"
	case errors.Is(err, ErrInternalIndex):
		return "internal_index"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// MarkerForKind is the inverse of Kind for errors that crossed a process
// boundary. Unknown kinds return nil.
func MarkerForKind(kind string) error {
	switch kind {
	case "validation":
		return ErrValidation
	case "unsupported_content":
		return ErrUnsupportedContent
	case "digest":
		return ErrDigest
	case "internal_index":
		return ErrInternalIndex
	case "not_found":
		return ErrNotFound
	default:
		return nil
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "fingerprint failure"
	}
	return strings.Join(parts, ": ")
}
