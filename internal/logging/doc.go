// Package logging assembles structured slog loggers and formatting helpers used
// by the ownership daemon and CLI.
//
// It owns the console and JSON handlers, level and output plumbing, and
// context helpers that tag log lines with correlation and record IDs. The
// matching core never logs; only collaborators (ingest, daemon, ipc, CLI) take
// a *slog.Logger. A no-op logger is provided for tests and wiring code.
package logging
