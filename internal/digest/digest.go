package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode/utf8"

	"ownership/internal/fingerprint"
	"ownership/internal/simhash"
	"ownership/internal/textutil"
)

// Result is the output of digesting one piece of content.
type Result struct {
	Category     fingerprint.Category `json:"contentCategory"`
	IdentityHash string               `json:"identityHash"`
	SimDigest    simhash.Digest       `json:"simDigest"`
	Features     []string             `json:"features,omitempty"`
	Confidence   float64              `json:"confidence"`
	Algorithm    string               `json:"algorithm"`
	SizeBytes    int64                `json:"sizeBytes"`
}

// Sample counts for the media placeholder digest.
const (
	ImageSamples = 256
	AudioSamples = 512
	VideoSamples = 1024
)

type profile struct {
	confidence float64
	algorithm  simhash.Algorithm
}

func defaultProfiles() map[fingerprint.Category]profile {
	return map[fingerprint.Category]profile{
		fingerprint.CategoryText:  {confidence: 0.95, algorithm: simhash.FeatureHash{}},
		fingerprint.CategoryCode:  {confidence: 0.90, algorithm: simhash.FeatureHash{}},
		fingerprint.CategoryImage: {confidence: 0.85, algorithm: simhash.SampleFold{Samples: ImageSamples}},
		fingerprint.CategoryAudio: {confidence: 0.80, algorithm: simhash.SampleFold{Samples: AudioSamples}},
		fingerprint.CategoryVideo: {confidence: 0.75, algorithm: simhash.SampleFold{Samples: VideoSamples}},
	}
}

// Generator computes identity hashes and similarity digests. The zero value is
// not usable; construct with NewGenerator.
type Generator struct {
	profiles map[fingerprint.Category]profile
}

// Option customises a Generator.
type Option func(*Generator)

// WithAlgorithm swaps the similarity algorithm for one category, keeping its
// self-reported confidence.
func WithAlgorithm(category fingerprint.Category, algorithm simhash.Algorithm) Option {
	return func(g *Generator) {
		if algorithm == nil {
			return
		}
		if p, ok := g.profiles[category]; ok {
			p.algorithm = algorithm
			g.profiles[category] = p
		}
	}
}

// NewGenerator builds a generator with the standard per-category profiles.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{profiles: defaultProfiles()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

var defaultGenerator = NewGenerator()

// Generate digests content with the default generator.
func Generate(category fingerprint.Category, raw []byte, decodedText string) (Result, error) {
	return defaultGenerator.Generate(category, raw, decodedText)
}

// Generate digests content of the given category. Text and code use
// decodedText when it is non-empty and otherwise require raw to be valid
// UTF-8. Media categories always hash raw bytes. It performs no I/O.
func (g *Generator) Generate(category fingerprint.Category, raw []byte, decodedText string) (Result, error) {
	p, ok := g.profiles[category]
	if !ok {
		return Result{}, fingerprint.Wrap(fingerprint.ErrDigest, "digest", string(category), "unsupported category",
			fingerprint.ErrUnsupportedContent)
	}
	if len(raw) == 0 && decodedText == "" {
		return Result{}, fingerprint.Wrap(fingerprint.ErrDigest, "digest", string(category), "empty content", nil)
	}

	res := Result{
		Category:   category,
		Confidence: p.confidence,
		Algorithm:  p.algorithm.Name(),
		SizeBytes:  int64(len(raw)),
	}

	if category.IsMedia() {
		if len(raw) == 0 {
			return Result{}, fingerprint.Wrap(fingerprint.ErrDigest, "digest", string(category), "media requires raw bytes", nil)
		}
		res.IdentityHash = hashHex(raw)
		res.SimDigest = p.algorithm.Digest(raw, nil)
		return res, nil
	}

	text, err := decode(raw, decodedText)
	if err != nil {
		return Result{}, fingerprint.Wrap(fingerprint.ErrDigest, "digest", string(category), "decode", err)
	}
	if res.SizeBytes == 0 {
		res.SizeBytes = int64(len(text))
	}

	var normalized string
	switch category {
	case fingerprint.CategoryText:
		normalized = textutil.NormalizeText(text)
		res.Features = textutil.UniqueTokens(normalized)
	case fingerprint.CategoryCode:
		normalized = textutil.NormalizeCode(text)
		res.Features = textutil.ExtractIdentifiers(normalized)
	}
	if normalized == "" {
		return Result{}, fingerprint.Wrap(fingerprint.ErrDigest, "digest", string(category), "no content after normalization", nil)
	}
	features := res.Features
	if len(features) == 0 {
		// Short words only, or code without declarations (JSON, SQL, bare
		// statements): digest rune shingles so unrelated items stay apart.
		features = textutil.Shingles(normalized, textutil.ShingleRunes)
	}
	res.IdentityHash = hashHex([]byte(normalized))
	res.SimDigest = p.algorithm.Digest([]byte(normalized), features)
	return res, nil
}

func decode(raw []byte, decodedText string) (string, error) {
	if decodedText != "" {
		if !utf8.ValidString(decodedText) {
			return "", fmt.Errorf("decoded text is not valid UTF-8")
		}
		return decodedText, nil
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("content is not valid UTF-8")
	}
	return strings.TrimPrefix(string(raw), "\ufeff"), nil
}

func hashHex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
