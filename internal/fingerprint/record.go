package fingerprint

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ownership/internal/simhash"
)

// Category identifies the family of content a fingerprint was computed from.
type Category string

const (
	CategoryText  Category = "text"
	CategoryCode  Category = "code"
	CategoryImage Category = "image"
	CategoryAudio Category = "audio"
	CategoryVideo Category = "video"
)

// Categories lists every supported category in display order.
func Categories() []Category {
	return []Category{CategoryText, CategoryCode, CategoryImage, CategoryAudio, CategoryVideo}
}

// Valid reports whether c is one of the supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryText, CategoryCode, CategoryImage, CategoryAudio, CategoryVideo:
		return true
	default:
		return false
	}
}

// IsMedia reports whether the category is digested from raw bytes.
func (c Category) IsMedia() bool {
	return c == CategoryImage || c == CategoryAudio || c == CategoryVideo
}

// ParseCategory converts user input into a Category.
func ParseCategory(value string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	if c == "" {
		return "", Wrap(ErrValidation, "fingerprint", "parse category", "category is required", nil)
	}
	if !c.Valid() {
		return "", Wrap(ErrValidation, "fingerprint", "parse category", fmt.Sprintf("unknown category %q", value), nil)
	}
	return c, nil
}

const (
	// IdentityHashLength is the hex length of a SHA-256 identity hash.
	IdentityHashLength = 64
	// BucketKeyLength is the number of hex characters used by HashPrefix and HashSuffix.
	BucketKeyLength = 8
)

// Record is the unit of identity in the fingerprint index.
type Record struct {
	ID           string         `json:"id"`
	IdentityHash string         `json:"identityHash"`
	SimDigest    simhash.Digest `json:"simDigest"`
	Category     Category       `json:"contentCategory"`
	Owner        OwnerRef       `json:"ownerRef"`
	SizeBytes    int64          `json:"sizeBytes"`
	SourceName   string         `json:"sourceName,omitempty"`
	Algorithm    string         `json:"algorithm,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	Verified     bool           `json:"verified"`
	MintedRef    string         `json:"mintedRef,omitempty"`
}

// NewID returns a fresh opaque record identifier.
func NewID() string {
	return uuid.NewString()
}

// HashPrefix returns the leading bucket key of the identity hash.
func (r Record) HashPrefix() string {
	return HashPrefix(r.IdentityHash)
}

// HashSuffix returns the trailing bucket key of the identity hash.
func (r Record) HashSuffix() string {
	return HashSuffix(r.IdentityHash)
}

// HashPrefix returns the first BucketKeyLength characters of hash.
func HashPrefix(hash string) string {
	if len(hash) <= BucketKeyLength {
		return hash
	}
	return hash[:BucketKeyLength]
}

// HashSuffix returns the last BucketKeyLength characters of hash.
func HashSuffix(hash string) string {
	if len(hash) <= BucketKeyLength {
		return hash
	}
	return hash[len(hash)-BucketKeyLength:]
}

// NormalizeIdentityHash lowercases and validates a hex identity hash.
func NormalizeIdentityHash(hash string) (string, error) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	if hash == "" {
		return "", Wrap(ErrValidation, "fingerprint", "identity hash", "identity hash is required", nil)
	}
	if len(hash) != IdentityHashLength {
		return "", Wrap(ErrValidation, "fingerprint", "identity hash",
			fmt.Sprintf("expected %d hex characters, got %d", IdentityHashLength, len(hash)), nil)
	}
	if _, err := hex.DecodeString(hash); err != nil {
		return "", Wrap(ErrValidation, "fingerprint", "identity hash", "not hexadecimal", nil)
	}
	return hash, nil
}

// Validate checks that the record is fully populated for indexing.
func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return Wrap(ErrValidation, "fingerprint", "validate record", "id is required", nil)
	}
	if _, err := NormalizeIdentityHash(r.IdentityHash); err != nil {
		return err
	}
	if !r.Category.Valid() {
		return Wrap(ErrValidation, "fingerprint", "validate record", fmt.Sprintf("unknown category %q", r.Category), nil)
	}
	if err := r.Owner.Validate(); err != nil {
		return err
	}
	if r.SizeBytes < 0 {
		return Wrap(ErrValidation, "fingerprint", "validate record", "size must be >= 0", nil)
	}
	return nil
}

// Older reports whether r sorts before other: earlier creation first, then
// lexically smaller ID.
func (r Record) Older(other Record) bool {
	if !r.CreatedAt.Equal(other.CreatedAt) {
		return r.CreatedAt.Before(other.CreatedAt)
	}
	return r.ID < other.ID
}
