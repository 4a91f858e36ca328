// Package simhash implements the 64-bit similarity digests and the distance and
// confidence functions used for near-duplicate detection.
//
// Text and code use a weighted SimHash over extracted features, hashing each
// feature with xxhash. Images, audio, and video use SampleFold, a deliberately
// coarse byte-sampling fold that stands in for real perceptual hashing. Both
// sit behind the Algorithm interface so a stronger media digest can replace
// SampleFold without changing the matching engine; doing so changes match
// outcomes for existing records, so the algorithm name is recorded with every
// digest.
package simhash
