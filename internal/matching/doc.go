// Package matching is the cross-matching engine: it classifies and digests
// incoming content when asked to, looks the result up in a fingerprint index
// (exact first, then near duplicates), and turns the outcome into a verdict.
//
// The engine is constructed explicitly and owns no global state. It never
// logs, persists, or notifies; those belong to the callers in ingest and the
// daemon.
package matching
