package matching_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"

	"ownership/internal/digest"
	"ownership/internal/fingerprint"
	"ownership/internal/index"
	"ownership/internal/matching"
	"ownership/internal/simhash"
)

const sampleHash = "abc1230000000000000000000000000000000000000000000000000000ffee99"

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func record(t *testing.T, id, hash string, digest simhash.Digest, category fingerprint.Category, owner string) fingerprint.Record {
	t.Helper()
	ref, err := fingerprint.ParseOwnerRef(owner)
	if err != nil {
		t.Fatalf("ParseOwnerRef(%q): %v", owner, err)
	}
	return fingerprint.Record{
		ID:           id,
		IdentityHash: hash,
		SimDigest:    digest,
		Category:     category,
		Owner:        ref,
		CreatedAt:    epoch,
		UpdatedAt:    epoch,
	}
}

func newEngine(t *testing.T, recs ...fingerprint.Record) *matching.Engine {
	t.Helper()
	engine := matching.NewEngine(index.New(index.Options{}), matching.DefaultPolicy())
	for _, rec := range recs {
		if err := engine.AddFingerprint(rec); err != nil {
			t.Fatalf("AddFingerprint(%s): %v", rec.ID, err)
		}
	}
	return engine
}

func TestCheckExactDuplicate(t *testing.T) {
	engine := newEngine(t, record(t, "rec-1", sampleHash, 0x1234, fingerprint.CategoryText, "alice@example.com"))

	verdict, err := engine.CheckFingerprint(matching.Request{IdentityHash: sampleHash, Category: fingerprint.CategoryText})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	if verdict.Status != matching.StatusDuplicate {
		t.Fatalf("status = %q, want duplicate", verdict.Status)
	}
	if verdict.TotalMatches != 1 || len(verdict.Matches) != 1 {
		t.Fatalf("matches = %+v", verdict.Matches)
	}
	m := verdict.Matches[0]
	if m.Confidence != 100 || m.MatchType != matching.MatchExact || m.RecordID != "rec-1" {
		t.Fatalf("match = %+v", m)
	}
	if m.Owner.String() != "alice@example.com" {
		t.Fatalf("owner = %q", m.Owner.String())
	}
}

func TestCheckExactIsCaseInsensitive(t *testing.T) {
	engine := newEngine(t, record(t, "rec-1", sampleHash, 0, fingerprint.CategoryText, "alice@example.com"))
	verdict, err := engine.CheckFingerprint(matching.Request{IdentityHash: strings.ToUpper(sampleHash), Category: fingerprint.CategoryText})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	if verdict.Status != matching.StatusDuplicate {
		t.Fatalf("status = %q, want duplicate", verdict.Status)
	}
}

func TestCheckEmptyCorpus(t *testing.T) {
	engine := newEngine(t)
	verdict, err := engine.CheckFingerprint(matching.Request{IdentityHash: sampleHash, SimDigest: 42, Category: fingerprint.CategoryCode})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	if verdict.Status != matching.StatusUnique || verdict.TotalMatches != 0 {
		t.Fatalf("verdict = %+v", verdict)
	}
	if verdict.Matches == nil {
		t.Fatal("matches should be an empty slice, not nil")
	}
	data, err := json.Marshal(verdict)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(data), `"matches":[]`) {
		t.Fatalf("json = %s", data)
	}
}

func TestCheckNearDuplicates(t *testing.T) {
	base := simhash.Digest(0xf0f0f0f0f0f0f0f0)
	tests := []struct {
		name       string
		flips      int
		wantStatus matching.Status
	}{
		{"identical digest", 0, matching.StatusDuplicate},
		{"three bits", 3, matching.StatusDuplicate},
		{"four bits", 4, matching.StatusSimilar},
		{"twelve bits", 12, matching.StatusSimilar},
		{"thirteen bits", 13, matching.StatusUnique},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := base
			for bit := 0; bit < tt.flips; bit++ {
				stored ^= 1 << uint(bit)
			}
			engine := newEngine(t, record(t, "stored", sampleHash, stored, fingerprint.CategoryText, "0x00000000000000000000000000000000000000aa"))
			otherHash := strings.Repeat("1", fingerprint.IdentityHashLength)
			verdict, err := engine.CheckFingerprint(matching.Request{IdentityHash: otherHash, SimDigest: base, Category: fingerprint.CategoryText})
			if err != nil {
				t.Fatalf("CheckFingerprint: %v", err)
			}
			if verdict.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q (matches %+v)", verdict.Status, tt.wantStatus, verdict.Matches)
			}
			if tt.wantStatus == matching.StatusUnique {
				return
			}
			m := verdict.Matches[0]
			if m.MatchType != matching.MatchSimilar || m.Distance != tt.flips {
				t.Fatalf("match = %+v", m)
			}
			if want := simhash.Confidence(tt.flips, simhash.DefaultScale); m.Confidence != want {
				t.Fatalf("confidence = %v, want %v", m.Confidence, want)
			}
		})
	}
}

func TestCheckIgnoresOtherCategories(t *testing.T) {
	engine := newEngine(t, record(t, "img", sampleHash, 7, fingerprint.CategoryImage, "bob@example.com"))
	verdict, err := engine.CheckFingerprint(matching.Request{
		IdentityHash: strings.Repeat("2", fingerprint.IdentityHashLength),
		SimDigest:    7,
		Category:     fingerprint.CategoryText,
	})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	if verdict.Status != matching.StatusUnique {
		t.Fatalf("status = %q, want unique", verdict.Status)
	}
}

func TestMatchesOrderedByConfidence(t *testing.T) {
	base := simhash.Digest(0)
	engine := newEngine(t,
		record(t, "far", strings.Repeat("a", 64), base^0xff, fingerprint.CategoryCode, "a@example.com"),
		record(t, "near", strings.Repeat("b", 64), base^0x1, fingerprint.CategoryCode, "b@example.com"),
		record(t, "mid", strings.Repeat("c", 64), base^0xf, fingerprint.CategoryCode, "c@example.com"),
	)
	verdict, err := engine.CheckFingerprint(matching.Request{IdentityHash: strings.Repeat("d", 64), SimDigest: base, Category: fingerprint.CategoryCode})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	var ids []string
	for _, m := range verdict.Matches {
		ids = append(ids, m.RecordID)
	}
	if strings.Join(ids, ",") != "near,mid,far" {
		t.Fatalf("order = %v", ids)
	}
	if verdict.Status != matching.StatusDuplicate {
		t.Fatalf("status = %q, want duplicate (best distance 1)", verdict.Status)
	}
}

func TestCheckValidation(t *testing.T) {
	engine := newEngine(t)
	tests := []struct {
		name string
		req  matching.Request
	}{
		{"missing hash", matching.Request{Category: fingerprint.CategoryText}},
		{"missing category", matching.Request{IdentityHash: sampleHash}},
		{"unknown category", matching.Request{IdentityHash: sampleHash, Category: "hologram"}},
		{"short hash", matching.Request{IdentityHash: "abc123", Category: fingerprint.CategoryText}},
		{"bad owner", matching.Request{IdentityHash: sampleHash, Category: fingerprint.CategoryText, Owner: "0x1234"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.CheckFingerprint(tt.req)
			if !errors.Is(err, fingerprint.ErrValidation) {
				t.Fatalf("error = %v, want validation", err)
			}
		})
	}
	if got := engine.Stats().Errors; got != int64(len(tests)) {
		t.Fatalf("error count = %d, want %d", got, len(tests))
	}
}

func TestCheckFromContent(t *testing.T) {
	engine := newEngine(t)
	first, err := engine.Digest(matching.Content{Filename: "story.txt", Data: []byte("The quick brown fox")}, "")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	owner, _ := fingerprint.EmailOwner("writer@example.com")
	rec := fingerprint.Record{
		ID:           "story",
		IdentityHash: first.IdentityHash,
		SimDigest:    first.SimDigest,
		Category:     first.Category,
		Owner:        owner,
		CreatedAt:    epoch,
	}
	if err := engine.AddFingerprint(rec); err != nil {
		t.Fatalf("AddFingerprint: %v", err)
	}

	verdict, err := engine.CheckFingerprint(matching.Request{
		Content: &matching.Content{Filename: "copy.md", Data: []byte("The quick brown fox.")},
	})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	if verdict.Status != matching.StatusDuplicate || verdict.Matches[0].MatchType != matching.MatchExact {
		t.Fatalf("verdict = %+v", verdict)
	}

	_, err = engine.CheckFingerprint(matching.Request{
		Content: &matching.Content{Filename: "archive.xyz", MimeType: "application/octet-stream", Data: []byte{1, 2, 3}},
	})
	if !errors.Is(err, fingerprint.ErrUnsupportedContent) {
		t.Fatalf("error = %v, want unsupported content", err)
	}
	_, err = engine.CheckFingerprint(matching.Request{
		Content: &matching.Content{Filename: "empty.txt"},
	})
	if !errors.Is(err, fingerprint.ErrDigest) {
		t.Fatalf("error = %v, want digest error", err)
	}
}

func TestUnrelatedFeaturelessContentIsUnique(t *testing.T) {
	engine := newEngine(t)
	stored, err := engine.Digest(matching.Content{Filename: "a.json", Data: []byte(`{"name":"alpha","port":8080}`)}, "")
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if err := engine.AddFingerprint(record(t, "a", stored.IdentityHash, stored.SimDigest, stored.Category, "alice@example.com")); err != nil {
		t.Fatalf("AddFingerprint: %v", err)
	}

	for _, c := range []matching.Content{
		{Filename: "b.json", Data: []byte(`[1,2,3,"completely","different"]`)},
		{Filename: "b.sql", Data: []byte("DELETE FROM orders")},
	} {
		verdict, err := engine.CheckFingerprint(matching.Request{Content: &c})
		if err != nil {
			t.Fatalf("CheckFingerprint(%s): %v", c.Filename, err)
		}
		if verdict.Status != matching.StatusUnique {
			t.Fatalf("%s: status = %q, matches %+v", c.Filename, verdict.Status, verdict.Matches)
		}
	}
}

type flatAlgorithm struct{}

func (flatAlgorithm) Name() string { return "flat" }
func (flatAlgorithm) Digest([]byte, []string) simhash.Digest { return 7 }

func TestWithGeneratorSwapsMediaAlgorithm(t *testing.T) {
	gen := digest.NewGenerator(digest.WithAlgorithm(fingerprint.CategoryImage, flatAlgorithm{}))
	engine := matching.NewEngine(nil, matching.DefaultPolicy(), matching.WithGenerator(gen))

	res, err := engine.Digest(matching.Content{Filename: "a.png", Data: []byte{1, 2, 3}}, fingerprint.CategoryImage)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if res.Algorithm != "flat" || res.SimDigest != 7 {
		t.Fatalf("generator not applied: %+v", res)
	}
	if err := engine.AddFingerprint(record(t, "img", res.IdentityHash, res.SimDigest, fingerprint.CategoryImage, "alice@example.com")); err != nil {
		t.Fatalf("AddFingerprint: %v", err)
	}

	verdict, err := engine.CheckFingerprint(matching.Request{
		Content:  &matching.Content{Filename: "b.png", Data: []byte{9, 8, 7, 6}},
		Category: fingerprint.CategoryImage,
	})
	if err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	if verdict.Status != matching.StatusDuplicate || verdict.Matches[0].MatchType == matching.MatchExact {
		t.Fatalf("equal digests should be a near duplicate: %+v", verdict)
	}
}

func TestAddFingerprintKeepsSameHashFromDifferentOwners(t *testing.T) {
	engine := newEngine(t,
		record(t, "first", sampleHash, 0, fingerprint.CategoryText, "alice@example.com"),
		record(t, "second", sampleHash, 0, fingerprint.CategoryText, "mallory@example.com"),
	)
	if got := engine.Stats().TotalRecords; got != 2 {
		t.Fatalf("TotalRecords = %d, want 2", got)
	}
	if all := engine.Index().LookupAll(sampleHash); len(all) != 2 {
		t.Fatalf("LookupAll = %d records", len(all))
	}
}

func TestAddBatch(t *testing.T) {
	engine := newEngine(t)
	good := record(t, "good", sampleHash, 0, fingerprint.CategoryText, "alice@example.com")
	bad := good
	bad.ID = "bad"
	bad.IdentityHash = "xyz"
	also := record(t, "also", strings.Repeat("e", 64), 0, fingerprint.CategoryAudio, "alice@example.com")

	added, err := engine.AddBatch([]fingerprint.Record{good, bad, also})
	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	if !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("error = %v, want validation", err)
	}
}

func TestCheckBatchPreservesOrder(t *testing.T) {
	engine := newEngine(t, record(t, "rec-1", sampleHash, 0, fingerprint.CategoryText, "alice@example.com"))
	reqs := []matching.Request{
		{IdentityHash: sampleHash, Category: fingerprint.CategoryText},
		{IdentityHash: "", Category: fingerprint.CategoryText},
		{IdentityHash: strings.Repeat("f", 64), SimDigest: ^simhash.Digest(0), Category: fingerprint.CategoryText},
	}
	result := engine.CheckBatch(reqs)
	if result.TotalRequests != 3 || len(result.Results) != 3 {
		t.Fatalf("result = %+v", result)
	}
	if v := result.Results[0].Verdict; v == nil || v.Status != matching.StatusDuplicate {
		t.Fatalf("item 0 = %+v", result.Results[0])
	}
	if err := result.Results[1].Err; !errors.Is(err, fingerprint.ErrValidation) {
		t.Fatalf("item 1 error = %v, want validation", err)
	}
	if v := result.Results[2].Verdict; v == nil || v.Status != matching.StatusUnique {
		t.Fatalf("item 2 = %+v", result.Results[2])
	}
	if result.Failed() != 1 {
		t.Fatalf("Failed = %d, want 1", result.Failed())
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded struct {
		TotalRequests int               `json:"totalRequests"`
		Results       []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !strings.Contains(string(decoded.Results[1]), `"kind":"validation"`) {
		t.Fatalf("error item json = %s", decoded.Results[1])
	}
	if !strings.Contains(string(decoded.Results[0]), `"status":"duplicate"`) {
		t.Fatalf("verdict item json = %s", decoded.Results[0])
	}
}

func TestCheckBatchLargeParallel(t *testing.T) {
	engine := matching.NewEngine(nil, matching.Policy{BatchWorkers: 3})
	var reqs []matching.Request
	for i := 0; i < 40; i++ {
		text := strings.Repeat("word ", i+1) + "tail"
		reqs = append(reqs, matching.Request{Content: &matching.Content{Filename: "doc.txt", Text: text}})
	}
	result := engine.CheckBatch(reqs)
	for i, item := range result.Results {
		if item.Err != nil || item.Verdict == nil {
			t.Fatalf("item %d = %+v", i, item)
		}
	}
	if got := engine.Stats().VerdictCounts[matching.StatusUnique]; got != 40 {
		t.Fatalf("unique count = %d, want 40", got)
	}
}

func TestStatsIsPureRead(t *testing.T) {
	engine := newEngine(t,
		record(t, "t", sampleHash, 0, fingerprint.CategoryText, "alice@example.com"),
		record(t, "v", strings.Repeat("9", 64), 0, fingerprint.CategoryVideo, "alice@example.com"),
	)
	if _, err := engine.CheckFingerprint(matching.Request{IdentityHash: sampleHash, Category: fingerprint.CategoryText}); err != nil {
		t.Fatalf("CheckFingerprint: %v", err)
	}
	first := engine.Stats()
	second := engine.Stats()
	if first.TotalRecords != 2 || first.PerCategory[fingerprint.CategoryVideo] != 1 {
		t.Fatalf("stats = %+v", first)
	}
	if first.VerdictCounts[matching.StatusDuplicate] != 1 || second.VerdictCounts[matching.StatusDuplicate] != 1 {
		t.Fatalf("verdict counts changed across reads: %+v %+v", first, second)
	}
}

func TestPolicyDefaults(t *testing.T) {
	engine := matching.NewEngine(nil, matching.Policy{MaxDistance: -1, DuplicateConfidence: 250})
	p := engine.Policy()
	want := matching.DefaultPolicy()
	if p.MaxDistance != want.MaxDistance || p.DuplicateConfidence != want.DuplicateConfidence || p.ConfidenceScale != want.ConfidenceScale {
		t.Fatalf("policy = %+v, want %+v", p, want)
	}
}

// Closer digests never get lower confidence than farther ones.
func TestConfidenceMonotonicAcrossMatches(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d1 := rapid.IntRange(0, 12).Draw(t, "d1")
		d2 := rapid.IntRange(d1, 12).Draw(t, "d2")

		engine := matching.NewEngine(nil, matching.DefaultPolicy())
		owner, _ := fingerprint.EmailOwner("prop@example.com")
		var mask1, mask2 simhash.Digest
		for bit := 0; bit < d1; bit++ {
			mask1 |= 1 << uint(bit)
		}
		for bit := 0; bit < d2; bit++ {
			mask2 |= 1 << uint(63-bit)
		}
		for i, mask := range []simhash.Digest{mask1, mask2} {
			err := engine.AddFingerprint(fingerprint.Record{
				ID:           []string{"one", "two"}[i],
				IdentityHash: strings.Repeat([]string{"1", "2"}[i], 64),
				SimDigest:    mask,
				Category:     fingerprint.CategoryText,
				Owner:        owner,
			})
			if err != nil {
				t.Fatalf("AddFingerprint: %v", err)
			}
		}
		verdict, err := engine.CheckFingerprint(matching.Request{IdentityHash: strings.Repeat("3", 64), Category: fingerprint.CategoryText})
		if err != nil {
			t.Fatalf("CheckFingerprint: %v", err)
		}
		conf := map[string]float64{}
		for _, m := range verdict.Matches {
			conf[m.RecordID] = m.Confidence
		}
		if conf["one"] < conf["two"] {
			t.Fatalf("distance %d confidence %v < distance %d confidence %v", d1, conf["one"], d2, conf["two"])
		}
	})
}
