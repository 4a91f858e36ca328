package recordstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ownership/internal/fingerprint"
	"ownership/internal/simhash"
)

const recordColumns = "id, identity_hash, hash_prefix, sim_digest, content_category, owner_wallet, owner_email, size_bytes, source_name, algorithm, verified, minted_ref, created_at, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*fingerprint.Record, error) {
	var (
		id         string
		hash       string
		prefix     string
		digestRaw  string
		category   string
		wallet     sql.NullString
		email      sql.NullString
		sizeBytes  int64
		sourceName sql.NullString
		algorithm  sql.NullString
		verified   sql.NullInt64
		mintedRef  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&id,
		&hash,
		&prefix,
		&digestRaw,
		&category,
		&wallet,
		&email,
		&sizeBytes,
		&sourceName,
		&algorithm,
		&verified,
		&mintedRef,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	digest, err := simhash.ParseDigest(digestRaw)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", id, err)
	}
	rec := &fingerprint.Record{
		ID:           id,
		IdentityHash: hash,
		SimDigest:    digest,
		Category:     fingerprint.Category(category),
		Owner:        fingerprint.OwnerRef{Wallet: wallet.String, Email: email.String},
		SizeBytes:    sizeBytes,
		SourceName:   sourceName.String,
		Algorithm:    algorithm.String,
		Verified:     verified.Valid && verified.Int64 != 0,
		MintedRef:    mintedRef.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		rec.UpdatedAt = updated
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is fixed width so lexical ORDER BY matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
