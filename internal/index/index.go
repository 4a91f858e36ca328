package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ownership/internal/fingerprint"
	"ownership/internal/simhash"
)

// DefaultBands is the number of digest substrings used for approximate lookup.
const DefaultBands = 4

// MinPrefixLength is the shortest abbreviated hash accepted by LookupPrefix.
const MinPrefixLength = 4

// Options configures an Index.
type Options struct {
	// Bands must divide the digest width evenly and be one of 1, 2, 4, 8.
	Bands int
}

// Candidate is a record returned by FindNear together with its distance.
type Candidate struct {
	Record   fingerprint.Record
	Distance int
}

// CorpusLoader supplies every persisted record for a bulk load.
type CorpusLoader interface {
	LoadRecords(ctx context.Context) ([]fingerprint.Record, error)
}

// Index holds fingerprint records in memory with exact, prefix, and
// approximate lookup paths. It is safe for concurrent use: lookups share a
// read lock and mutations take the write lock, so readers never observe a
// half-inserted record.
type Index struct {
	mu    sync.RWMutex
	bands int
	state *state
}

// New constructs an empty index.
func New(opts Options) *Index {
	bands := normalizeBands(opts.Bands)
	return &Index{bands: bands, state: newState(bands)}
}

func normalizeBands(bands int) int {
	switch bands {
	case 1, 2, 4, 8:
		return bands
	default:
		return DefaultBands
	}
}

// Bands reports the band count in effect.
func (i *Index) Bands() int {
	return i.bands
}

// Insert adds or replaces a record. Inserting the same ID twice updates the
// stored record in place and re-buckets it when its hash, digest, or category
// changed. Records sharing an identity hash under different IDs are kept side
// by side.
func (i *Index) Insert(rec fingerprint.Record) error {
	rec, err := prepare(rec)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.insert(rec)
}

// LookupExact returns the earliest record with the given identity hash.
func (i *Index) LookupExact(hash string) (fingerprint.Record, bool) {
	hash = strings.ToLower(strings.TrimSpace(hash))
	i.mu.RLock()
	defer i.mu.RUnlock()
	ids := i.state.byHash[hash]
	if len(ids) == 0 {
		return fingerprint.Record{}, false
	}
	best := i.state.byID[ids[0]]
	for _, id := range ids[1:] {
		if rec := i.state.byID[id]; rec.Older(best) {
			best = rec
		}
	}
	return best, true
}

// LookupAll returns every record sharing the identity hash, oldest first.
func (i *Index) LookupAll(hash string) []fingerprint.Record {
	hash = strings.ToLower(strings.TrimSpace(hash))
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state.records(i.state.byHash[hash])
}

// LookupPrefix resolves an abbreviated identity hash. Prefixes shorter than
// MinPrefixLength return nothing.
func (i *Index) LookupPrefix(prefix string) []fingerprint.Record {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < MinPrefixLength {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	var ids []string
	if len(prefix) >= fingerprint.BucketKeyLength {
		for _, id := range i.state.byPrefix[prefix[:fingerprint.BucketKeyLength]] {
			if strings.HasPrefix(i.state.byID[id].IdentityHash, prefix) {
				ids = append(ids, id)
			}
		}
	} else {
		for bucket, bucketIDs := range i.state.byPrefix {
			if strings.HasPrefix(bucket, prefix) {
				ids = append(ids, bucketIDs...)
			}
		}
	}
	return i.state.records(ids)
}

// Get returns the record stored under id.
func (i *Index) Get(id string) (fingerprint.Record, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	rec, ok := i.state.byID[id]
	return rec, ok
}

// FindNear returns every record of the category whose digest lies within
// maxDistance of d, ordered by distance, then age, then ID. A negative
// maxDistance returns nothing.
func (i *Index) FindNear(d simhash.Digest, category fingerprint.Category, maxDistance int) []Candidate {
	if maxDistance < 0 {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()

	table := i.state.categories[category]
	if table == nil || len(table.members) == 0 {
		return nil
	}

	var out []Candidate
	consider := func(id string) {
		rec := i.state.byID[id]
		if dist := simhash.Distance(d, rec.SimDigest); dist <= maxDistance {
			out = append(out, Candidate{Record: rec, Distance: dist})
		}
	}

	radius := maxDistance / i.bands
	if probeCost(i.bands, radius) > len(table.members) {
		for id := range table.members {
			consider(id)
		}
	} else {
		seen := make(map[string]struct{})
		for b := 0; b < i.bands; b++ {
			key := bandKey(d, b, i.bands)
			forEachNeighbor(key, bandWidth(i.bands), radius, func(k uint64) {
				for _, id := range table.bands[b][k] {
					if _, dup := seen[id]; dup {
						continue
					}
					seen[id] = struct{}{}
					consider(id)
				}
			})
		}
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Distance != out[b].Distance {
			return out[a].Distance < out[b].Distance
		}
		return out[a].Record.Older(out[b].Record)
	})
	return out
}

// Len returns the number of records held.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.state.byID)
}

// CountByCategory returns record counts per category. Categories with no
// records are omitted.
func (i *Index) CountByCategory() map[fingerprint.Category]int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make(map[fingerprint.Category]int, len(i.state.categories))
	for category, table := range i.state.categories {
		if n := len(table.members); n > 0 {
			out[category] = n
		}
	}
	return out
}

// BulkLoad replaces the index contents with the loader's corpus. The new
// structure is built without holding the lock and swapped in at once; on any
// error the existing contents are left untouched.
func (i *Index) BulkLoad(ctx context.Context, loader CorpusLoader) (int, error) {
	if loader == nil {
		return 0, fingerprint.Wrap(fingerprint.ErrInternalIndex, "index", "bulk load", "loader is required", nil)
	}
	records, err := loader.LoadRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("load corpus: %w", err)
	}
	next := newState(i.bands)
	for n, rec := range records {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		prepared, err := prepare(rec)
		if err != nil {
			return 0, fmt.Errorf("load record %q: %w", rec.ID, err)
		}
		if err := next.insert(prepared); err != nil {
			return 0, fmt.Errorf("load record %q: %w", rec.ID, err)
		}
	}
	i.mu.Lock()
	i.state = next
	i.mu.Unlock()
	return len(next.byID), nil
}

func prepare(rec fingerprint.Record) (fingerprint.Record, error) {
	hash, err := fingerprint.NormalizeIdentityHash(rec.IdentityHash)
	if err != nil {
		return rec, err
	}
	rec.IdentityHash = hash
	if err := rec.Validate(); err != nil {
		return rec, err
	}
	return rec, nil
}
