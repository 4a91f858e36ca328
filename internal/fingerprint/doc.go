// Package fingerprint defines the shared data model for content fingerprints:
// categories, owner references, persisted records, and the error markers the
// matching pipeline reports.
//
// Records carry two digests computed from normalized content. IdentityHash is a
// SHA-256 hex digest used for exact duplicate detection; SimDigest is a 64-bit
// similarity digest compared by Hamming distance. HashPrefix and HashSuffix
// derive short bucketing keys from the identity hash and are only used for
// pruning and abbreviated lookups, never for correctness.
//
// Errors returned by the classifier, digest generator, index, and matching
// engine are tagged with one of the sentinel markers in errors.go so callers
// can classify failures with errors.Is or Kind.
package fingerprint
