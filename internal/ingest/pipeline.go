package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ownership/internal/digest"
	"ownership/internal/fingerprint"
	"ownership/internal/logging"
	"ownership/internal/matching"
	"ownership/internal/notifications"
)

const defaultMaxContentBytes = 256 << 20

// RecordStore is the persistence the pipeline writes registrations to.
type RecordStore interface {
	Save(ctx context.Context, rec *fingerprint.Record) error
	Delete(ctx context.Context, id string) error
}

// Options configures a Pipeline.
type Options struct {
	// MaxContentBytes rejects larger files before they are read.
	MaxContentBytes int64
	// DefaultOwner is used by ProcessInbox and by Register when no owner is given.
	DefaultOwner string
	// ProcessedDir and RejectedDir receive inbox files after processing.
	ProcessedDir string
	RejectedDir  string
}

// Pipeline connects files on disk to the engine, store and notifier.
type Pipeline struct {
	engine   *matching.Engine
	store    RecordStore
	notifier notifications.Service
	logger   *slog.Logger
	opts     Options

	// registerMu makes check-then-insert atomic across registrations.
	registerMu sync.Mutex
}

// Outcome is the result of processing one file.
type Outcome struct {
	Path    string           `json:"path"`
	Digest  digest.Result    `json:"digest"`
	Verdict matching.Verdict `json:"verdict"`
	// Record is set by Register: the new record, or the existing one when the
	// same owner registers identical content again.
	Record   *fingerprint.Record `json:"record,omitempty"`
	Existing bool                `json:"existing,omitempty"`
}

// NewPipeline wires a pipeline. A nil notifier disables notifications and a
// nil logger discards logs. store may be nil for inspect-only use.
func NewPipeline(engine *matching.Engine, store RecordStore, notifier notifications.Service, logger *slog.Logger, opts Options) *Pipeline {
	if opts.MaxContentBytes <= 0 {
		opts.MaxContentBytes = defaultMaxContentBytes
	}
	if notifier == nil {
		notifier = notifications.NewService(nil)
	}
	return &Pipeline{
		engine:   engine,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		opts:     opts,
	}
}

// Engine returns the engine the pipeline matches against.
func (p *Pipeline) Engine() *matching.Engine {
	return p.engine
}

// Exclusive runs fn while no registration is in flight, so an index rebuild
// cannot drop a record saved concurrently.
func (p *Pipeline) Exclusive(fn func() error) error {
	p.registerMu.Lock()
	defer p.registerMu.Unlock()
	return fn()
}

// Fingerprint classifies and digests path without consulting the index.
func (p *Pipeline) Fingerprint(path string) (digest.Result, error) {
	content, err := p.readContent(path)
	if err != nil {
		return digest.Result{}, err
	}
	return p.engine.Digest(content, "")
}

// Inspect reports the verdict for path against the current index. Nothing is
// persisted and nobody is notified.
func (p *Pipeline) Inspect(ctx context.Context, path string) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	res, err := p.Fingerprint(path)
	if err != nil {
		return Outcome{Path: path}, err
	}
	verdict, err := p.engine.CheckFingerprint(requestFor(res, ""))
	if err != nil {
		return Outcome{Path: path, Digest: res}, err
	}
	return Outcome{Path: path, Digest: res, Verdict: verdict}, nil
}

// Register fingerprints path, records it for owner, and alerts the owners of
// any similar or duplicate content. The verdict is computed before the new
// record is indexed, so it never matches itself.
func (p *Pipeline) Register(ctx context.Context, path, owner string) (Outcome, error) {
	if p.store == nil {
		return Outcome{}, errors.New("register: no record store configured")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(owner) == "" {
		owner = p.opts.DefaultOwner
	}
	ownerRef, err := fingerprint.ParseOwnerRef(owner)
	if err != nil {
		return Outcome{Path: path}, err
	}

	res, err := p.Fingerprint(path)
	if err != nil {
		return Outcome{Path: path}, err
	}

	p.registerMu.Lock()
	defer p.registerMu.Unlock()

	verdict, err := p.engine.CheckFingerprint(requestFor(res, ownerRef.String()))
	if err != nil {
		return Outcome{Path: path, Digest: res}, err
	}
	out := Outcome{Path: path, Digest: res, Verdict: verdict}

	if existing, ok := p.sameOwnerExact(verdict, res.IdentityHash, ownerRef); ok {
		out.Record = &existing
		out.Existing = true
		p.logger.Info("content already registered to owner",
			logging.String(logging.FieldEventType, "register_existing"),
			logging.String(logging.FieldRecordID, existing.ID),
			logging.String(logging.FieldIdentityHash, existing.IdentityHash),
			logging.String(logging.FieldSourcePath, path),
		)
		return out, nil
	}

	rec := fingerprint.Record{
		ID:           fingerprint.NewID(),
		IdentityHash: res.IdentityHash,
		SimDigest:    res.SimDigest,
		Category:     res.Category,
		Owner:        ownerRef,
		SizeBytes:    res.SizeBytes,
		SourceName:   filepath.Base(path),
		Algorithm:    res.Algorithm,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.Save(ctx, &rec); err != nil {
		return out, fmt.Errorf("persist record: %w", err)
	}
	if err := p.engine.AddFingerprint(rec); err != nil {
		if delErr := p.store.Delete(ctx, rec.ID); delErr != nil {
			err = errors.Join(err, fmt.Errorf("roll back record: %w", delErr))
		}
		return out, fmt.Errorf("index record: %w", err)
	}
	out.Record = &rec

	logging.WithContext(logging.WithRecordID(ctx, rec.ID), p.logger).Info("content registered",
		logging.String(logging.FieldEventType, "record_registered"),
		logging.String(logging.FieldIdentityHash, rec.IdentityHash),
		logging.String(logging.FieldCategory, string(rec.Category)),
		logging.String(logging.FieldOwner, rec.Owner.String()),
		logging.String(logging.FieldStatus, string(verdict.Status)),
		logging.Int(logging.FieldMatches, verdict.TotalMatches),
		logging.Int64("content_bytes", rec.SizeBytes),
	)

	p.notify(ctx, notifications.EventRecordRegistered, notifications.Payload{
		notifications.KeyRecordID:     rec.ID,
		notifications.KeyIdentityHash: rec.IdentityHash,
		notifications.KeyCategory:     string(rec.Category),
		notifications.KeyOwner:        rec.Owner.String(),
		notifications.KeySource:       rec.SourceName,
	})
	p.alertOwners(ctx, verdict, rec)
	return out, nil
}

func (p *Pipeline) sameOwnerExact(verdict matching.Verdict, hash string, owner fingerprint.OwnerRef) (fingerprint.Record, bool) {
	if len(verdict.Matches) == 0 || verdict.Matches[0].MatchType != matching.MatchExact {
		return fingerprint.Record{}, false
	}
	for _, rec := range p.engine.Index().LookupAll(hash) {
		if rec.Owner == owner {
			return rec, true
		}
	}
	return fingerprint.Record{}, false
}

// alertOwners notifies every other owner whose content the new record
// matches, once per owner, using that owner's best match.
func (p *Pipeline) alertOwners(ctx context.Context, verdict matching.Verdict, rec fingerprint.Record) {
	targets := p.alertTargets(verdict, rec)
	if len(targets) == 0 {
		return
	}
	logging.WarnWithContext(p.logger, "registered content matches existing records", "owners_alerted",
		logging.String(logging.FieldRecordID, rec.ID),
		logging.String(logging.FieldIdentityHash, rec.IdentityHash),
		logging.String(logging.FieldStatus, string(verdict.Status)),
		logging.String("matched_record", targets[0].RecordID),
		logging.String("matched_owner", targets[0].Owner.String()),
		logging.Float64(logging.FieldConfidence, targets[0].Confidence),
		logging.Int("owners", len(targets)),
		logging.Alert(string(p.alertEvent(targets[0]))),
		logging.String(logging.FieldImpact, "original owners alerted"),
		logging.String(logging.FieldErrorHint, "review the matched records before minting"),
	)
	for _, m := range targets {
		p.notify(ctx, p.alertEvent(m), notifications.Payload{
			notifications.KeyRecordID:     m.RecordID,
			notifications.KeyIdentityHash: rec.IdentityHash,
			notifications.KeyConfidence:   m.Confidence,
			notifications.KeyMatches:      verdict.TotalMatches,
			notifications.KeyOwner:        m.Owner.String(),
			notifications.KeyRequester:    rec.Owner.String(),
			notifications.KeySource:       rec.SourceName,
		})
	}
}

// alertTargets keeps the first match per owner, skipping the requester. An
// exact verdict names only the earliest holder of the hash, so the other
// holders are taken from the index.
func (p *Pipeline) alertTargets(verdict matching.Verdict, rec fingerprint.Record) []matching.Match {
	matches := append([]matching.Match(nil), verdict.Matches...)
	if len(matches) > 0 && matches[0].MatchType == matching.MatchExact {
		for _, held := range p.engine.Index().LookupAll(rec.IdentityHash) {
			if held.ID == matches[0].RecordID || held.ID == rec.ID {
				continue
			}
			matches = append(matches, matching.Match{
				RecordID:   held.ID,
				Confidence: 100,
				MatchType:  matching.MatchExact,
				Owner:      held.Owner,
			})
		}
	}
	seen := map[fingerprint.OwnerRef]bool{rec.Owner: true}
	var out []matching.Match
	for _, m := range matches {
		if seen[m.Owner] {
			continue
		}
		seen[m.Owner] = true
		out = append(out, m)
	}
	return out
}

func (p *Pipeline) alertEvent(m matching.Match) notifications.Event {
	if m.MatchType == matching.MatchExact || m.Confidence >= p.engine.Policy().DuplicateConfidence {
		return notifications.EventDuplicateDetected
	}
	return notifications.EventSimilarDetected
}

func (p *Pipeline) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := p.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(p.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "no push notification delivered"),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		)
	}
}

func (p *Pipeline) readContent(path string) (matching.Content, error) {
	info, err := os.Stat(path)
	if err != nil {
		return matching.Content{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return matching.Content{}, fingerprint.Wrap(fingerprint.ErrValidation, "ingest", "read", path+" is a directory", nil)
	}
	if info.Size() > p.opts.MaxContentBytes {
		return matching.Content{}, fingerprint.Wrap(fingerprint.ErrValidation, "ingest", "read",
			fmt.Sprintf("%s is %d bytes, limit is %d", path, info.Size(), p.opts.MaxContentBytes), nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return matching.Content{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, p.opts.MaxContentBytes+1))
	if err != nil {
		return matching.Content{}, fmt.Errorf("read %s: %w", path, err)
	}
	if int64(len(data)) > p.opts.MaxContentBytes {
		return matching.Content{}, fingerprint.Wrap(fingerprint.ErrValidation, "ingest", "read",
			fmt.Sprintf("%s grew past the %d byte limit while reading", path, p.opts.MaxContentBytes), nil)
	}
	return matching.Content{Filename: filepath.Base(path), Data: data}, nil
}

func requestFor(res digest.Result, owner string) matching.Request {
	return matching.Request{
		IdentityHash: res.IdentityHash,
		SimDigest:    res.SimDigest,
		Category:     res.Category,
		Owner:        owner,
	}
}
