// Package recordstore persists fingerprint records in SQLite.
//
// The store is the durable side of the in-memory index: ingest writes every
// registered record here, and the daemon bulk loads the index from
// LoadRecords at startup and on reload. Verification and minting state live
// only in the store; the index ignores them.
package recordstore
