package fingerprint_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"ownership/internal/fingerprint"
)

const sampleHash = "abc1230000000000000000000000000000000000000000000000000000ffee99"

func TestParseOwnerRef(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    string
		wantErr bool
	}{
		{"wallet", "0x52908400098527886E0F7030069857D2E4169EE7", "wallet", false},
		{"email", "creator@example.com", "email", false},
		{"short wallet", "0x1234", "", true},
		{"display name email", "Creator <creator@example.com>", "", true},
		{"empty", "  ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, err := fingerprint.ParseOwnerRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				if !errors.Is(err, fingerprint.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseOwnerRef: %v", err)
			}
			if owner.Kind() != tt.kind {
				t.Fatalf("Kind() = %q, want %q", owner.Kind(), tt.kind)
			}
			if err := owner.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestOwnerRefMutuallyExclusive(t *testing.T) {
	owner := fingerprint.OwnerRef{Wallet: "0x52908400098527886e0f7030069857d2e4169ee7", Email: "a@example.com"}
	if err := owner.Validate(); !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("expected validation error for both identifiers, got %v", err)
	}
	if err := (fingerprint.OwnerRef{}).Validate(); !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("expected validation error for empty owner, got %v", err)
	}
}

func TestOwnerRefJSON(t *testing.T) {
	owner, err := fingerprint.EmailOwner("creator@example.com")
	if err != nil {
		t.Fatalf("EmailOwner: %v", err)
	}
	data, err := json.Marshal(owner)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"creator@example.com"` {
		t.Fatalf("unexpected json %s", data)
	}
	var decoded fingerprint.OwnerRef
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != owner {
		t.Fatalf("decoded %+v, want %+v", decoded, owner)
	}
}

func TestRecordValidateAndBuckets(t *testing.T) {
	owner, _ := fingerprint.EmailOwner("creator@example.com")
	rec := fingerprint.Record{
		ID:           fingerprint.NewID(),
		IdentityHash: sampleHash,
		Category:     fingerprint.CategoryText,
		Owner:        owner,
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if rec.HashPrefix() != "abc12300" {
		t.Fatalf("HashPrefix() = %q", rec.HashPrefix())
	}
	if rec.HashSuffix() != "00ffee99" {
		t.Fatalf("HashSuffix() = %q", rec.HashSuffix())
	}

	bad := rec
	bad.IdentityHash = "abc123"
	if err := bad.Validate(); !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("expected validation error for short hash, got %v", err)
	}
	bad = rec
	bad.Category = "hologram"
	if err := bad.Validate(); !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("expected validation error for category, got %v", err)
	}
}

func TestRecordOlder(t *testing.T) {
	now := time.Now()
	a := fingerprint.Record{ID: "b", CreatedAt: now}
	b := fingerprint.Record{ID: "a", CreatedAt: now.Add(time.Second)}
	if !a.Older(b) {
		t.Fatal("expected earlier record to sort first")
	}
	c := fingerprint.Record{ID: "a", CreatedAt: now}
	if !c.Older(a) {
		t.Fatal("expected smaller id to break ties")
	}
}

func TestWrapAndKind(t *testing.T) {
	cause := errors.New("boom")
	err := fingerprint.Wrap(fingerprint.ErrDigest, "digest", "text", "normalize", cause)
	if !errors.Is(err, fingerprint.ErrDigest) || !errors.Is(err, cause) {
		t.Fatalf("expected wrapped marker and cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "digest: text: normalize") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if fingerprint.Kind(err) != "digest" {
		t.Fatalf("Kind() = %q", fingerprint.Kind(err))
	}
	if fingerprint.Kind(cause) != "internal" {
		t.Fatalf("Kind(plain) = %q", fingerprint.Kind(cause))
	}
	if fingerprint.Kind(nil) != "" {
		t.Fatal("expected empty kind for nil")
	}
	for _, marker := range []error{fingerprint.ErrValidation, fingerprint.ErrUnsupportedContent, fingerprint.ErrDigest, fingerprint.ErrInternalIndex, fingerprint.ErrNotFound} {
		if got := fingerprint.MarkerForKind(fingerprint.Kind(marker)); got != marker {
			t.Fatalf("MarkerForKind(Kind(%v)) = %v", marker, got)
		}
	}
	if fingerprint.MarkerForKind("internal") != nil {
		t.Fatal("expected nil marker for internal kind")
	}
}

func TestParseCategory(t *testing.T) {
	c, err := fingerprint.ParseCategory(" Image ")
	if err != nil || c != fingerprint.CategoryImage {
		t.Fatalf("ParseCategory = %q, %v", c, err)
	}
	if _, err := fingerprint.ParseCategory("binary"); !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
