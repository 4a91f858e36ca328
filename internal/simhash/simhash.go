package simhash

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Width is the number of bits in a Digest.
const Width = 64

// Digest is a fixed-width similarity digest. Hamming distance between two
// digests approximates the dissimilarity of the content they summarize.
type Digest uint64

// String renders the digest as 16 lowercase hex characters.
func (d Digest) String() string {
	return fmt.Sprintf("%016x", uint64(d))
}

// MarshalText encodes the digest as hex so JSON payloads stay readable.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a hex digest produced by MarshalText.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDigest parses a hex digest with an optional 0x prefix.
func ParseDigest(value string) (Digest, error) {
	value = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(value)), "0x")
	if value == "" {
		return 0, fmt.Errorf("parse digest: empty value")
	}
	if len(value) > Width/4 {
		return 0, fmt.Errorf("parse digest: %q exceeds %d hex characters", value, Width/4)
	}
	parsed, err := strconv.ParseUint(value, 16, Width)
	if err != nil {
		return 0, fmt.Errorf("parse digest: %w", err)
	}
	return Digest(parsed), nil
}

// Distance returns the Hamming distance between two digests.
func Distance(a, b Digest) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// FromFeatures builds a weighted SimHash over the supplied features. Each
// occurrence of a feature adds +1 to the bit positions set in its 64-bit hash
// and -1 to the others; positive positions become 1 bits. Repeated features
// therefore carry proportionally more weight. An empty feature list yields 0.
func FromFeatures(features []string) Digest {
	if len(features) == 0 {
		return 0
	}
	var weights [Width]int
	for _, feature := range features {
		h := xxhash.Sum64String(feature)
		for bit := 0; bit < Width; bit++ {
			if h&(1<<uint(bit)) != 0 {
				weights[bit]++
			} else {
				weights[bit]--
			}
		}
	}
	var out uint64
	for bit, weight := range weights {
		if weight > 0 {
			out |= 1 << uint(bit)
		}
	}
	return Digest(out)
}

// FoldSample is the coarse placeholder digest used for binary media. It reads
// at most samples bytes at a stride of len(data)/samples and folds each into
// the accumulator with a 7-bit left rotation followed by XOR. It is not a
// perceptual hash; two encodings of the same picture or recording will almost
// never land near each other.
func FoldSample(data []byte, samples int) Digest {
	if len(data) == 0 || samples <= 0 {
		return 0
	}
	stride := len(data) / samples
	if stride < 1 {
		stride = 1
	}
	var acc uint64
	taken := 0
	for i := 0; i < len(data) && taken < samples; i += stride {
		acc = bits.RotateLeft64(acc, 7) ^ uint64(data[i])
		taken++
	}
	return Digest(acc)
}

// Confidence maps a Hamming distance onto a 0-100 score: 100 - distance*scale,
// floored at zero. A non-positive scale falls back to DefaultScale.
func Confidence(distance int, scale float64) float64 {
	if scale <= 0 {
		scale = DefaultScale
	}
	if distance < 0 {
		distance = 0
	}
	score := 100 - float64(distance)*scale
	if score < 0 {
		return 0
	}
	return score
}

// DefaultScale spreads the full 0-100 range across the digest width, so a
// distance of Width maps to zero confidence.
const DefaultScale = 100.0 / Width
