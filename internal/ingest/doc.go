// Package ingest turns files on disk into verdicts and registered records.
//
// A Pipeline reads a file (bounded by matching.max_content_bytes), lets the
// matching engine classify and digest it, and either reports the verdict
// (Inspect) or persists a new record to the store, adds it to the in-memory
// index, and alerts the owners of any similar or duplicate records
// (Register). ProcessInbox wraps Register for files dropped into the watched
// inbox and files them under processed/ or rejected/ afterwards.
package ingest
