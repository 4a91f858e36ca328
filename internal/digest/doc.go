// Package digest turns classified content into an identity hash and a
// similarity digest.
//
// Text is normalized (case folded, punctuation dropped, whitespace collapsed)
// before hashing so cosmetic edits map to the same identity. Code has comments
// and statement terminators stripped and contributes declared identifiers as
// similarity features. Binary media is hashed as-is and summarized with a
// sampled fold that only catches byte-level near copies.
package digest
