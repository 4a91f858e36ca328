package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ownership/internal/fileutil"
	"ownership/internal/fingerprint"
	"ownership/internal/logging"
	"ownership/internal/notifications"
)

// ProcessInbox registers an inbox file under the default owner, then moves it
// to the processed directory, or to the rejected directory when the content
// cannot be fingerprinted. Transient failures (store, IO) leave the file in
// place so the next scan retries it.
func (p *Pipeline) ProcessInbox(ctx context.Context, path string) (Outcome, error) {
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSourcePath, path))

	out, err := p.Register(ctx, path, p.opts.DefaultOwner)
	if err != nil {
		if !isContentError(err) {
			logging.ErrorWithContext(logger, "inbox file failed", "inbox_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the file stays in the inbox and is retried on the next scan"),
			)
			p.notify(ctx, notifications.EventError, notifications.Payload{
				notifications.KeyContext: "inbox " + filepath.Base(path),
				notifications.KeyError:   err.Error(),
			})
			return out, err
		}
		logging.WarnWithContext(logger, "inbox file rejected", "inbox_rejected",
			logging.Error(err),
			logging.String("error_kind", fingerprint.Kind(err)),
			logging.String(logging.FieldImpact, "file was not registered"),
			logging.String(logging.FieldErrorHint, "check the file type and size limits"),
		)
		if _, moveErr := moveInto(path, p.opts.RejectedDir); moveErr != nil {
			return out, errors.Join(err, moveErr)
		}
		return out, err
	}

	dest, err := moveInto(path, p.opts.ProcessedDir)
	if err != nil {
		return out, err
	}
	out.Path = dest
	logger.Info("inbox file processed",
		logging.String(logging.FieldEventType, "inbox_processed"),
		logging.String(logging.FieldStatus, string(out.Verdict.Status)),
		logging.String("destination", dest),
	)
	return out, nil
}

// isContentError reports failures that retrying the same file cannot fix.
func isContentError(err error) bool {
	return errors.Is(err, fingerprint.ErrValidation) ||
		errors.Is(err, fingerprint.ErrUnsupportedContent) ||
		errors.Is(err, fingerprint.ErrDigest)
}

// moveInto moves path into dir, adding a numeric suffix on name clashes.
// An empty dir leaves the file where it is.
func moveInto(path, dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	target, err := fileutil.UniquePath(dir, filepath.Base(path))
	if err != nil {
		return "", err
	}
	if err := fileutil.MoveFile(path, target); err != nil {
		return "", fmt.Errorf("move %s: %w", path, err)
	}
	return target, nil
}
