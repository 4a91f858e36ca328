package index

import (
	"fmt"
	"math"
	"sort"

	"ownership/internal/fingerprint"
	"ownership/internal/simhash"
)

type state struct {
	bands      int
	byID       map[string]fingerprint.Record
	byHash     map[string][]string
	byPrefix   map[string][]string
	categories map[fingerprint.Category]*categoryTable
}

// categoryTable is the multi-index structure for one category: each band of
// the digest keys its own map of record IDs.
type categoryTable struct {
	members map[string]struct{}
	bands   []map[uint64][]string
}

func newState(bands int) *state {
	return &state{
		bands:      bands,
		byID:       make(map[string]fingerprint.Record),
		byHash:     make(map[string][]string),
		byPrefix:   make(map[string][]string),
		categories: make(map[fingerprint.Category]*categoryTable),
	}
}

func (s *state) table(category fingerprint.Category) *categoryTable {
	table := s.categories[category]
	if table == nil {
		table = &categoryTable{
			members: make(map[string]struct{}),
			bands:   make([]map[uint64][]string, s.bands),
		}
		for b := range table.bands {
			table.bands[b] = make(map[uint64][]string)
		}
		s.categories[category] = table
	}
	return table
}

func (s *state) insert(rec fingerprint.Record) error {
	if existing, ok := s.byID[rec.ID]; ok {
		if err := s.remove(existing); err != nil {
			return err
		}
	}
	s.byID[rec.ID] = rec
	s.byHash[rec.IdentityHash] = append(s.byHash[rec.IdentityHash], rec.ID)
	prefix := rec.HashPrefix()
	s.byPrefix[prefix] = append(s.byPrefix[prefix], rec.ID)

	table := s.table(rec.Category)
	table.members[rec.ID] = struct{}{}
	for b := 0; b < s.bands; b++ {
		key := bandKey(rec.SimDigest, b, s.bands)
		table.bands[b][key] = append(table.bands[b][key], rec.ID)
	}
	return nil
}

func (s *state) remove(rec fingerprint.Record) error {
	inconsistent := func(where string) error {
		return fingerprint.Wrap(fingerprint.ErrInternalIndex, "index", "remove",
			fmt.Sprintf("record %s missing from %s", rec.ID, where), nil)
	}
	if !removeID(s.byHash, rec.IdentityHash, rec.ID) {
		return inconsistent("hash map")
	}
	if !removeID(s.byPrefix, rec.HashPrefix(), rec.ID) {
		return inconsistent("prefix buckets")
	}
	table := s.categories[rec.Category]
	if table == nil {
		return inconsistent("category table")
	}
	if _, ok := table.members[rec.ID]; !ok {
		return inconsistent("category members")
	}
	delete(table.members, rec.ID)
	for b := 0; b < s.bands; b++ {
		if !removeID(table.bands[b], bandKey(rec.SimDigest, b, s.bands), rec.ID) {
			return inconsistent(fmt.Sprintf("band %d", b))
		}
	}
	delete(s.byID, rec.ID)
	return nil
}

// records resolves ids to records ordered oldest first.
func (s *state) records(ids []string) []fingerprint.Record {
	if len(ids) == 0 {
		return nil
	}
	out := make([]fingerprint.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Older(out[b]) })
	return out
}

func removeID[K comparable](m map[K][]string, key K, id string) bool {
	ids := m[key]
	for n, candidate := range ids {
		if candidate != id {
			continue
		}
		ids = append(ids[:n], ids[n+1:]...)
		if len(ids) == 0 {
			delete(m, key)
		} else {
			m[key] = ids
		}
		return true
	}
	return false
}

func bandWidth(bands int) int {
	return simhash.Width / bands
}

// bandKey extracts the b-th substring of d.
func bandKey(d simhash.Digest, b, bands int) uint64 {
	width := bandWidth(bands)
	if width == simhash.Width {
		return uint64(d)
	}
	mask := uint64(1)<<uint(width) - 1
	return (uint64(d) >> uint(b*width)) & mask
}

// probeCost is the number of band keys visited when every band is searched
// within radius bits. It saturates instead of overflowing.
func probeCost(bands, radius int) int {
	width := bandWidth(bands)
	if radius > width {
		radius = width
	}
	total := 0.0
	term := 1.0
	for k := 0; k <= radius; k++ {
		if k > 0 {
			term = term * float64(width-k+1) / float64(k)
		}
		total += term
	}
	total *= float64(bands)
	if total > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(total)
}

// forEachNeighbor calls fn for key and every value differing from it in at
// most radius of the low width bits.
func forEachNeighbor(key uint64, width, radius int, fn func(uint64)) {
	var walk func(current uint64, start, remaining int)
	walk = func(current uint64, start, remaining int) {
		fn(current)
		if remaining == 0 {
			return
		}
		for bit := start; bit < width; bit++ {
			walk(current^(1<<uint(bit)), bit+1, remaining-1)
		}
	}
	walk(key, 0, radius)
}
