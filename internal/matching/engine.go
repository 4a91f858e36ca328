package matching

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ownership/internal/classify"
	"ownership/internal/digest"
	"ownership/internal/fingerprint"
	"ownership/internal/index"
	"ownership/internal/simhash"
)

// Engine answers fingerprint requests against an index. It is safe for
// concurrent use.
type Engine struct {
	idx       *index.Index
	policy    Policy
	generator *digest.Generator

	// writeMu keeps batch inserts contiguous.
	writeMu sync.Mutex

	unique    atomic.Int64
	similar   atomic.Int64
	duplicate atomic.Int64
	failures  atomic.Int64
}

// Option customises the Engine.
type Option func(*Engine)

// WithGenerator overrides the digest generator (primarily for swapping the
// media algorithm).
func WithGenerator(gen *digest.Generator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.generator = gen
		}
	}
}

// NewEngine constructs an engine bound to idx. A nil index gets a fresh empty
// one with default options.
func NewEngine(idx *index.Index, policy Policy, opts ...Option) *Engine {
	if idx == nil {
		idx = index.New(index.Options{})
	}
	e := &Engine{
		idx:    idx,
		policy: policy.normalized(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.generator == nil {
		e.generator = digest.NewGenerator()
	}
	return e
}

// Index exposes the underlying index for collaborators that bulk load it.
func (e *Engine) Index() *index.Index {
	return e.idx
}

// Policy returns the normalized policy in effect.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Digest classifies and digests raw content without touching the index.
// An explicit category skips classification.
func (e *Engine) Digest(content Content, category fingerprint.Category) (digest.Result, error) {
	if category == "" {
		var err error
		if content.MimeType == "" {
			category, err = classify.Detect(content.Filename, content.Data)
		} else {
			category, err = classify.Classify(content.Filename, content.MimeType)
		}
		if err != nil {
			return digest.Result{}, err
		}
	}
	return e.generator.Generate(category, content.Data, content.Text)
}

// CheckFingerprint looks a request up in the index. An exact identity hash
// hit is a duplicate with confidence 100. Otherwise every record of the same
// category within the policy's distance becomes a similar match, and the
// verdict is a duplicate when the best confidence reaches the duplicate
// threshold. The index is never modified.
func (e *Engine) CheckFingerprint(req Request) (Verdict, error) {
	start := time.Now()
	q, err := e.resolve(req)
	if err != nil {
		e.failures.Add(1)
		return Verdict{}, err
	}
	verdict := e.match(q)
	verdict.ProcessingTimeMicros = time.Since(start).Microseconds()
	e.count(verdict.Status)
	return verdict, nil
}

type query struct {
	hash     string
	digest   simhash.Digest
	category fingerprint.Category
}

func (e *Engine) resolve(req Request) (query, error) {
	if req.IdentityHash == "" && req.Content != nil {
		res, err := e.Digest(*req.Content, req.Category)
		if err != nil {
			return query{}, err
		}
		req.IdentityHash = res.IdentityHash
		req.SimDigest = res.SimDigest
		req.Category = res.Category
	}
	if req.IdentityHash == "" {
		return query{}, fingerprint.Wrap(fingerprint.ErrValidation, "matching", "check", "identity hash is required", nil)
	}
	if req.Category == "" {
		return query{}, fingerprint.Wrap(fingerprint.ErrValidation, "matching", "check", "content category is required", nil)
	}
	if !req.Category.Valid() {
		return query{}, fingerprint.Wrap(fingerprint.ErrValidation, "matching", "check", "unknown content category "+string(req.Category), nil)
	}
	hash, err := fingerprint.NormalizeIdentityHash(req.IdentityHash)
	if err != nil {
		return query{}, err
	}
	if req.Owner != "" {
		if _, err := fingerprint.ParseOwnerRef(req.Owner); err != nil {
			return query{}, err
		}
	}
	return query{hash: hash, digest: req.SimDigest, category: req.Category}, nil
}

func (e *Engine) match(q query) Verdict {
	if rec, ok := e.idx.LookupExact(q.hash); ok {
		return Verdict{
			Status: StatusDuplicate,
			Matches: []Match{{
				RecordID:   rec.ID,
				Confidence: 100,
				MatchType:  MatchExact,
				Owner:      rec.Owner,
			}},
			TotalMatches: 1,
		}
	}

	candidates := e.idx.FindNear(q.digest, q.category, e.policy.MaxDistance)
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, Match{
			RecordID:   c.Record.ID,
			Confidence: simhash.Confidence(c.Distance, e.policy.ConfidenceScale),
			MatchType:  MatchSimilar,
			Owner:      c.Record.Owner,
			Distance:   c.Distance,
		})
	}
	// candidates arrive ordered by distance, age, ID; a stable sort keeps
	// that tie order.
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Confidence > matches[b].Confidence
	})

	status := StatusUnique
	switch {
	case len(matches) > 0 && matches[0].Confidence >= e.policy.DuplicateConfidence:
		status = StatusDuplicate
	case len(matches) > 0:
		status = StatusSimilar
	}
	return Verdict{Status: status, Matches: matches, TotalMatches: len(matches)}
}

func (e *Engine) count(status Status) {
	switch status {
	case StatusUnique:
		e.unique.Add(1)
	case StatusSimilar:
		e.similar.Add(1)
	case StatusDuplicate:
		e.duplicate.Add(1)
	}
}

// AddFingerprint inserts a record. Records that share an identity hash with
// an existing record under another ID are kept alongside it.
func (e *Engine) AddFingerprint(rec fingerprint.Record) error {
	return e.idx.Insert(rec)
}

// AddBatch inserts records one at a time, continuing past failures. It returns
// the number inserted and the joined per-record errors.
func (e *Engine) AddBatch(recs []fingerprint.Record) (int, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	var errs []error
	added := 0
	for _, rec := range recs {
		if err := e.idx.Insert(rec); err != nil {
			errs = append(errs, err)
			continue
		}
		added++
	}
	return added, errors.Join(errs...)
}

// CheckBatch runs CheckFingerprint over every request. Requests are resolved
// in parallel, bounded by the policy's worker count, and results keep input
// order. A failing item is reported in place without affecting the others.
func (e *Engine) CheckBatch(reqs []Request) BatchResult {
	start := time.Now()
	results := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(e.policy.BatchWorkers)
	for i, req := range reqs {
		g.Go(func() error {
			verdict, err := e.CheckFingerprint(req)
			if err != nil {
				results[i] = BatchItem{Err: err}
				return nil
			}
			results[i] = BatchItem{Verdict: &verdict}
			return nil
		})
	}
	_ = g.Wait()

	return BatchResult{
		TotalRequests:        len(reqs),
		Results:              results,
		ProcessingTimeMicros: time.Since(start).Microseconds(),
	}
}

// Stats reports index size and cumulative verdict counts. It only reads.
func (e *Engine) Stats() Stats {
	return Stats{
		TotalRecords: e.idx.Len(),
		PerCategory:  e.idx.CountByCategory(),
		VerdictCounts: map[Status]int64{
			StatusUnique:    e.unique.Load(),
			StatusSimilar:   e.similar.Load(),
			StatusDuplicate: e.duplicate.Load(),
		},
		Errors: e.failures.Load(),
	}
}
