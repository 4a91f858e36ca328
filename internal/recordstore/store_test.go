package recordstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ownership/internal/fingerprint"
	"ownership/internal/index"
	"ownership/internal/recordstore"
	"ownership/internal/testsupport"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSaveAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.NewRecord(t, testsupport.Hash(1), 0xdeadbeef00ff00ff, fingerprint.CategoryText, epoch)
	rec.SourceName = "notes.txt"
	rec.Algorithm = "simhash-xxh64"
	testsupport.SaveRecord(t, store, rec)

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored record")
	}
	if got.IdentityHash != rec.IdentityHash || got.SimDigest != rec.SimDigest || got.Category != rec.Category {
		t.Fatalf("unexpected record: %#v", got)
	}
	if got.Owner.Email != "owner@example.com" || got.SourceName != "notes.txt" || got.Algorithm != "simhash-xxh64" {
		t.Fatalf("unexpected metadata: %#v", got)
	}
	if !got.CreatedAt.Equal(epoch) {
		t.Fatalf("CreatedAt = %v, want %v", got.CreatedAt, epoch)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be set")
	}

	missing, err := store.Get(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing record, got %#v, %v", missing, err)
	}
}

func TestSaveNormalizesAndValidates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	upper := testsupport.NewRecord(t, "ABC1230000000000000000000000000000000000000000000000000000FFEE99", 1, fingerprint.CategoryCode, epoch)
	if err := store.Save(ctx, &upper); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if upper.IdentityHash != "abc1230000000000000000000000000000000000000000000000000000ffee99" {
		t.Fatalf("hash not normalized: %s", upper.IdentityHash)
	}

	cases := []struct {
		name   string
		mutate func(*fingerprint.Record)
	}{
		{"short hash", func(r *fingerprint.Record) { r.IdentityHash = "abc" }},
		{"no category", func(r *fingerprint.Record) { r.Category = "" }},
		{"no owner", func(r *fingerprint.Record) { r.Owner = fingerprint.OwnerRef{} }},
		{"no id", func(r *fingerprint.Record) { r.ID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := testsupport.NewRecord(t, testsupport.Hash(2), 2, fingerprint.CategoryText, epoch)
			tc.mutate(&rec)
			err := store.Save(ctx, &rec)
			if !errors.Is(err, fingerprint.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestSaveUpsertsByID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(3), 3, fingerprint.CategoryImage, epoch))
	rec.SimDigest = 42
	rec.Category = fingerprint.CategoryAudio
	testsupport.SaveRecord(t, store, rec)

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single row after upsert, got %d", count)
	}
	got, _ := store.Get(ctx, rec.ID)
	if got.SimDigest != 42 || got.Category != fingerprint.CategoryAudio {
		t.Fatalf("upsert not applied: %#v", got)
	}
	if !got.CreatedAt.Equal(epoch) {
		t.Fatalf("upsert must keep CreatedAt, got %v", got.CreatedAt)
	}
}

func TestSaveRejectsOwnerOrHashChange(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(4), 4, fingerprint.CategoryText, epoch))
	wallet, err := fingerprint.WalletOwner("0x" + strings.Repeat("cd", 20))
	if err != nil {
		t.Fatalf("WalletOwner: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*fingerprint.Record)
	}{
		{"other email", func(r *fingerprint.Record) { r.Owner = mustEmail(t, "mallory@example.com") }},
		{"wallet instead of email", func(r *fingerprint.Record) { r.Owner = wallet }},
		{"other hash", func(r *fingerprint.Record) { r.IdentityHash = testsupport.Hash(5) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			changed := rec
			tc.mutate(&changed)
			if err := store.Save(ctx, &changed); !errors.Is(err, fingerprint.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Owner != rec.Owner || got.IdentityHash != rec.IdentityHash {
		t.Fatalf("stored identity changed: %#v", got)
	}
}

func mustEmail(t *testing.T, address string) fingerprint.OwnerRef {
	t.Helper()
	ref, err := fingerprint.EmailOwner(address)
	if err != nil {
		t.Fatalf("EmailOwner(%q): %v", address, err)
	}
	return ref
}

func TestFindByIdentityHashOrdersOldestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	hash := testsupport.Hash(4)
	newer := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, hash, 1, fingerprint.CategoryText, epoch.Add(time.Hour)))
	older := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, hash, 1, fingerprint.CategoryText, epoch.Add(150*time.Millisecond)))
	testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(5), 1, fingerprint.CategoryText, epoch))

	found, err := store.FindByIdentityHash(ctx, hash)
	if err != nil {
		t.Fatalf("FindByIdentityHash failed: %v", err)
	}
	if len(found) != 2 || found[0].ID != older.ID || found[1].ID != newer.ID {
		t.Fatalf("unexpected order: %#v", found)
	}

	if _, err := store.FindByIdentityHash(ctx, "nothex"); !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFindByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(0), 1, fingerprint.CategoryText, epoch))
	testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(1), 1, fingerprint.CategoryText, epoch))

	tests := []struct {
		prefix string
		want   int
	}{
		{"0123", 1},
		{"0123456789AB", 1},
		{a.IdentityHash, 1},
		{"1", 1},
		{"f0", 0},
	}
	for _, tt := range tests {
		got, err := store.FindByPrefix(ctx, tt.prefix)
		if err != nil {
			t.Fatalf("FindByPrefix(%q) failed: %v", tt.prefix, err)
		}
		if len(got) != tt.want {
			t.Fatalf("FindByPrefix(%q) = %d records, want %d", tt.prefix, len(got), tt.want)
		}
	}

	for _, bad := range []string{"", "xyz"} {
		if _, err := store.FindByPrefix(ctx, bad); !errors.Is(err, fingerprint.ErrValidation) {
			t.Fatalf("FindByPrefix(%q) expected validation error, got %v", bad, err)
		}
	}
}

func TestSetVerifiedAndMintedRef(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(6), 6, fingerprint.CategoryVideo, epoch))

	if err := store.SetVerified(ctx, rec.ID, true); err != nil {
		t.Fatalf("SetVerified failed: %v", err)
	}
	if err := store.SetMintedRef(ctx, rec.ID, " token-17 "); err != nil {
		t.Fatalf("SetMintedRef failed: %v", err)
	}
	got, _ := store.Get(ctx, rec.ID)
	if !got.Verified || got.MintedRef != "token-17" {
		t.Fatalf("unexpected flags: %#v", got)
	}

	if err := store.SetVerified(ctx, "missing", true); !errors.Is(err, fingerprint.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.SetMintedRef(ctx, "missing", "x"); !errors.Is(err, fingerprint.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCountsAndDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	text := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(7), 1, fingerprint.CategoryText, epoch))
	testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(8), 1, fingerprint.CategoryText, epoch))
	testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(9), 1, fingerprint.CategoryCode, epoch))

	counts, err := store.CountByCategory(ctx)
	if err != nil {
		t.Fatalf("CountByCategory failed: %v", err)
	}
	if counts[fingerprint.CategoryText] != 2 || counts[fingerprint.CategoryCode] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if _, ok := counts[fingerprint.CategoryImage]; ok {
		t.Fatalf("empty categories should be omitted: %v", counts)
	}

	if err := store.Delete(ctx, text.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, text.ID); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Fatalf("expected 2 records after delete, got %d", n)
	}
}

func TestLoadRecordsFeedsIndex(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	for i := range 5 {
		testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(byte(i)), 0, fingerprint.CategoryText, epoch.Add(time.Duration(i)*time.Second)))
	}

	idx := index.New(index.Options{})
	loaded, err := idx.BulkLoad(ctx, store)
	if err != nil {
		t.Fatalf("BulkLoad failed: %v", err)
	}
	if loaded != 5 || idx.Len() != 5 {
		t.Fatalf("expected 5 indexed records, got %d (loaded %d)", idx.Len(), loaded)
	}
	rec, ok := idx.LookupExact(testsupport.Hash(0))
	if !ok {
		t.Fatal("expected exact lookup to hit loaded record")
	}
	if !rec.CreatedAt.Equal(epoch) {
		t.Fatalf("timestamps must survive the round trip, got %v", rec.CreatedAt)
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "records.db")

	store, err := recordstore.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	rec := testsupport.SaveRecord(t, store, testsupport.NewRecord(t, testsupport.Hash(10), 1, fingerprint.CategoryText, epoch))
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := recordstore.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), rec.ID)
	if err != nil || got == nil {
		t.Fatalf("expected record after reopen, got %#v, %v", got, err)
	}
}
