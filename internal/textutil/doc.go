// Package textutil provides the normalization and feature extraction rules
// that feed text and source code fingerprints.
//
// The primary use cases are:
//   - Normalizing prose so cosmetic edits (case, punctuation, spacing) do not
//     change its identity hash
//   - Splitting normalized prose into unique tokens for similarity digests
//   - Stripping comments and redundant terminators from source code and
//     pattern-matching the identifiers it declares or imports
//
// Every function here is pure and deterministic. Normalizing already
// normalized text is a no-op.
package textutil
