package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record is the last known-good state of one file.
type Record struct {
	Path         string    `json:"path" yaml:"path"`
	Digest       string    `json:"digest" yaml:"digest"`
	RegisteredAt time.Time `json:"registered_at,omitzero" yaml:"registered_at,omitempty"`
}

const upsertSQL = `
	INSERT INTO files (path, digest, registered_at)
	VALUES (?, ?, ?)
	ON CONFLICT(path) DO UPDATE SET
		digest = excluded.digest,
		registered_at = excluded.registered_at
`

// Put inserts a record or overwrites the digest of an existing one.
// Last write wins; no history is kept.
func (s *Store) Put(ctx context.Context, rec Record) error {
	if rec.Path == "" {
		return fmt.Errorf("put: empty path")
	}
	if _, err := s.db.ExecContext(ctx, upsertSQL, rec.Path, rec.Digest, unixNano(rec.RegisteredAt)); err != nil {
		return fmt.Errorf("put %s: %w", rec.Path, err)
	}
	return nil
}

// PutMany upserts all records in a single transaction. Either every record
// is written or none is.
func (s *Store) PutMany(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put many: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("put many: prepare: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		if rec.Path == "" {
			return fmt.Errorf("put many: empty path")
		}
		if _, err := stmt.ExecContext(ctx, rec.Path, rec.Digest, unixNano(rec.RegisteredAt)); err != nil {
			return fmt.Errorf("put many: %s: %w", rec.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put many: commit: %w", err)
	}
	return nil
}

// Remove deletes the record for path. Removing a path that has no record is
// not an error; removed reports whether a row was deleted.
func (s *Store) Remove(ctx context.Context, path string) (removed bool, err error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("remove %s: %w", path, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove %s: rows affected: %w", path, err)
	}
	return n > 0, nil
}

func unixNano(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
