package simhash

// Algorithm produces a similarity digest for one family of content. Text and
// code digests come from semantic features; binary media digests come from the
// raw bytes. Implementations must be pure.
type Algorithm interface {
	Name() string
	Digest(raw []byte, features []string) Digest
}

// FeatureHash is the weighted SimHash over extracted features.
type FeatureHash struct{}

func (FeatureHash) Name() string { return "simhash-xxh64-v1" }

func (FeatureHash) Digest(_ []byte, features []string) Digest {
	return FromFeatures(features)
}

// SampleFold wraps FoldSample with a fixed sample count.
type SampleFold struct {
	Samples int
}

func (SampleFold) Name() string { return "sample-fold-v1" }

func (s SampleFold) Digest(raw []byte, _ []string) Digest {
	return FoldSample(raw, s.Samples)
}
