package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/fcd/internal/pathutil"
)

// Get returns the record for path. ok is false if there is none.
func (s *Store) Get(ctx context.Context, path string) (rec Record, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT path, digest, registered_at
		FROM files
		WHERE path = ?
	`, path)

	rec, err = scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("get %s: %w", path, err)
	}
	return rec, true, nil
}

// List returns every record ordered by path.
// Returns an empty slice (not nil) for an empty store.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, digest, registered_at
		FROM files
		ORDER BY path COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	return collectRecords(rows)
}

// ListPrefix returns the records for root itself and everything below it,
// ordered by path. "/a/b" does not match "/a/bc/x".
func (s *Store) ListPrefix(ctx context.Context, root string) ([]Record, error) {
	if root == "" {
		return nil, fmt.Errorf("list prefix: empty root")
	}
	prefix := pathutil.DirPrefix(root)

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, digest, registered_at
		FROM files
		WHERE path = ? OR substr(path, 1, length(?)) = ?
		ORDER BY path COLLATE BINARY ASC
	`, root, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("query records under %s: %w", root, err)
	}
	return collectRecords(rows)
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var registered sql.NullInt64
	if err := row.Scan(&rec.Path, &rec.Digest, &registered); err != nil {
		return Record{}, err
	}
	if registered.Valid {
		rec.RegisteredAt = time.Unix(0, registered.Int64).UTC()
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
