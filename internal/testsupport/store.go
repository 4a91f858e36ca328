package testsupport

import (
	"context"
	"testing"
	"time"

	"ownership/internal/config"
	"ownership/internal/fingerprint"
	"ownership/internal/recordstore"
	"ownership/internal/simhash"
)

// MustOpenStore opens a recordstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *recordstore.Store {
	t.Helper()

	store, err := recordstore.Open(cfg)
	if err != nil {
		t.Fatalf("recordstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// Hash returns a valid identity hash made by repeating seed.
func Hash(seed byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, fingerprint.IdentityHashLength)
	for i := range out {
		out[i] = hexdigits[(int(seed)+i)%len(hexdigits)]
	}
	return string(out)
}

// NewRecord builds a valid record with a fresh ID. created orders records
// deterministically.
func NewRecord(t testing.TB, hash string, digest simhash.Digest, category fingerprint.Category, created time.Time) fingerprint.Record {
	t.Helper()

	owner, err := fingerprint.EmailOwner("owner@example.com")
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	return fingerprint.Record{
		ID:           fingerprint.NewID(),
		IdentityHash: hash,
		SimDigest:    digest,
		Category:     category,
		Owner:        owner,
		SizeBytes:    16,
		CreatedAt:    created.UTC(),
	}
}

// SaveRecord persists rec and fails the test on error.
func SaveRecord(t testing.TB, store *recordstore.Store, rec fingerprint.Record) fingerprint.Record {
	t.Helper()

	if err := store.Save(context.Background(), &rec); err != nil {
		t.Fatalf("store.Save: %v", err)
	}
	return rec
}
