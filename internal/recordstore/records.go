package recordstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ownership/internal/fingerprint"
)

// Save inserts rec or updates the stored row with the same ID. The identity
// hash and owner of a stored record never change: a conflicting Save fails
// with ErrValidation. CreatedAt is set on first insert when zero; UpdatedAt
// is always refreshed.
func (s *Store) Save(ctx context.Context, rec *fingerprint.Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	hash, err := fingerprint.NormalizeIdentityHash(rec.IdentityHash)
	if err != nil {
		return err
	}
	rec.IdentityHash = hash
	if err := rec.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	res, err := s.execWithRetry(ctx,
		`INSERT INTO fingerprints (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            sim_digest = excluded.sim_digest,
            content_category = excluded.content_category,
            size_bytes = excluded.size_bytes,
            source_name = excluded.source_name,
            algorithm = excluded.algorithm,
            verified = excluded.verified,
            minted_ref = excluded.minted_ref,
            updated_at = excluded.updated_at
        WHERE fingerprints.identity_hash = excluded.identity_hash
            AND fingerprints.owner_wallet IS excluded.owner_wallet
            AND fingerprints.owner_email IS excluded.owner_email`,
		rec.ID,
		rec.IdentityHash,
		rec.HashPrefix(),
		rec.SimDigest.String(),
		string(rec.Category),
		nullableString(rec.Owner.Wallet),
		nullableString(rec.Owner.Email),
		rec.SizeBytes,
		nullableString(rec.SourceName),
		nullableString(rec.Algorithm),
		boolToInt(rec.Verified),
		nullableString(rec.MintedRef),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fingerprint.Wrap(fingerprint.ErrValidation, "recordstore", "save",
			"record "+rec.ID+" already exists with a different owner or identity hash", nil)
	}
	return nil
}

// Get fetches a record by ID. A missing record returns nil without error.
func (s *Store) Get(ctx context.Context, id string) (*fingerprint.Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM fingerprints WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// FindByIdentityHash returns every record sharing hash, oldest first.
func (s *Store) FindByIdentityHash(ctx context.Context, hash string) ([]fingerprint.Record, error) {
	normalized, err := fingerprint.NormalizeIdentityHash(hash)
	if err != nil {
		return nil, err
	}
	return s.query(ctx, "find by identity hash",
		`SELECT `+recordColumns+` FROM fingerprints WHERE identity_hash = ? ORDER BY created_at, id`, normalized)
}

// FindByPrefix returns records whose identity hash starts with prefix. The
// indexed hash_prefix column narrows the scan when prefix is long enough.
func (s *Store) FindByPrefix(ctx context.Context, prefix string) ([]fingerprint.Record, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, fingerprint.Wrap(fingerprint.ErrValidation, "recordstore", "find by prefix", "prefix is required", nil)
	}
	for _, r := range prefix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return nil, fingerprint.Wrap(fingerprint.ErrValidation, "recordstore", "find by prefix", fmt.Sprintf("prefix %q is not hexadecimal", prefix), nil)
		}
	}
	if len(prefix) >= fingerprint.BucketKeyLength {
		return s.query(ctx, "find by prefix",
			`SELECT `+recordColumns+` FROM fingerprints WHERE hash_prefix = ? AND identity_hash LIKE ? ORDER BY created_at, id`,
			prefix[:fingerprint.BucketKeyLength], prefix+"%")
	}
	return s.query(ctx, "find by prefix",
		`SELECT `+recordColumns+` FROM fingerprints WHERE identity_hash LIKE ? ORDER BY created_at, id`, prefix+"%")
}

// LoadRecords returns the whole corpus, oldest first. It satisfies
// index.CorpusLoader.
func (s *Store) LoadRecords(ctx context.Context) ([]fingerprint.Record, error) {
	return s.query(ctx, "load records", `SELECT `+recordColumns+` FROM fingerprints ORDER BY created_at, id`)
}

// SetVerified flips the verified flag on a record.
func (s *Store) SetVerified(ctx context.Context, id string, verified bool) error {
	return s.updateOne(ctx, "set verified",
		`UPDATE fingerprints SET verified = ?, updated_at = ? WHERE id = ?`,
		id, boolToInt(verified), formatTime(time.Now().UTC()), id)
}

// SetMintedRef records the external token reference a record was minted as.
// An empty ref clears it.
func (s *Store) SetMintedRef(ctx context.Context, id, ref string) error {
	return s.updateOne(ctx, "set minted ref",
		`UPDATE fingerprints SET minted_ref = ?, updated_at = ? WHERE id = ?`,
		id, nullableString(strings.TrimSpace(ref)), formatTime(time.Now().UTC()), id)
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM fingerprints WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ensureContext(ctx), `SELECT COUNT(1) FROM fingerprints`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// CountByCategory returns record counts keyed by category. Categories with
// no records are omitted.
func (s *Store) CountByCategory(ctx context.Context) (map[fingerprint.Category]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT content_category, COUNT(1) FROM fingerprints GROUP BY content_category`)
	if err != nil {
		return nil, fmt.Errorf("count by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[fingerprint.Category]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[fingerprint.Category(category)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]fingerprint.Record, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var records []fingerprint.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

func (s *Store) updateOne(ctx context.Context, op, query, id string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return fingerprint.Wrap(fingerprint.ErrNotFound, "recordstore", op, fmt.Sprintf("record %q", id), nil)
	}
	return nil
}
