// Package daemon coordinates the long-running ownership service.
//
// A Daemon holds the single-instance flock, bulk loads the in-memory index
// from the record store, optionally watches the inbox directory, and exposes
// the operations the IPC server forwards (check, register, stats, status,
// reload). Reloads are collapsed with singleflight so concurrent callers share
// one corpus load.
package daemon
