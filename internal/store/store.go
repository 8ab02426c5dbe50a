package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/fcd/internal/digest"
	"github.com/roach88/fcd/internal/fcderr"
)

//go:embed schema.sql
var schemaSQL string

// FormatVersion is written to meta.format_version on Initialize and checked
// on Open.
const FormatVersion = "1"

const (
	metaFormatVersion   = "format_version"
	metaDigestAlgorithm = "digest_algorithm"
)

// Store is an open record store.
type Store struct {
	db       *sql.DB
	location string
}

// Meta describes a store's persisted format.
type Meta struct {
	FormatVersion   string `json:"format_version" yaml:"format_version"`
	DigestAlgorithm string `json:"digest_algorithm" yaml:"digest_algorithm"`
}

// Exists reports whether something is present at location.
func Exists(location string) bool {
	_, err := os.Stat(location)
	return err == nil
}

// Initialize creates a new, empty store at location.
// Fails with STORE_ALREADY_EXISTS if anything is already there.
func Initialize(ctx context.Context, location string) (*Store, error) {
	// O_EXCL makes the existence check and the creation a single step.
	f, err := os.OpenFile(location, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fcderr.Newf(fcderr.StoreAlreadyExists,
				"a file already exists at %s; remove it first", location).WithDetail("location", location)
		}
		return nil, fcderr.Wrapf(err, fcderr.IOError, "create store at %s", location).WithDetail("location", location)
	}
	if err := f.Close(); err != nil {
		return nil, fcderr.Wrapf(err, fcderr.IOError, "create store at %s", location).WithDetail("location", location)
	}

	s, err := open(location)
	if err != nil {
		removeFiles(location)
		return nil, fcderr.Wrapf(err, fcderr.IOError, "open new store at %s", location).WithDetail("location", location)
	}

	if err := s.createSchema(ctx); err != nil {
		s.Close()
		removeFiles(location)
		return nil, fcderr.Wrapf(err, fcderr.IOError, "initialize store at %s", location).WithDetail("location", location)
	}

	return s, nil
}

// Open opens an initialized store.
// Fails with STORE_NOT_FOUND if nothing exists at location and STORE_CORRUPT
// if the file is not a store this version understands.
func Open(ctx context.Context, location string) (*Store, error) {
	info, err := os.Stat(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fcderr.Newf(fcderr.StoreNotFound,
				"no store at %s; run init first", location).WithDetail("location", location)
		}
		return nil, fcderr.Wrapf(err, fcderr.IOError, "stat store %s", location).WithDetail("location", location)
	}
	if info.IsDir() {
		return nil, fcderr.Newf(fcderr.StoreCorrupt, "store location %s is a directory", location).
			WithDetail("location", location)
	}

	s, err := open(location)
	if err != nil {
		return nil, fcderr.Wrapf(err, fcderr.StoreCorrupt, "open store %s", location).WithDetail("location", location)
	}

	if err := s.verify(ctx); err != nil {
		s.Close()
		return nil, fcderr.Wrapf(err, fcderr.StoreCorrupt, "store %s is not usable", location).WithDetail("location", location)
	}

	return s, nil
}

// OpenOrInitialize opens the store at location, creating it first if nothing
// exists there.
func OpenOrInitialize(ctx context.Context, location string) (s *Store, created bool, err error) {
	if Exists(location) {
		s, err = Open(ctx, location)
		return s, false, err
	}
	s, err = Initialize(ctx, location)
	if fcderr.IsCode(err, fcderr.StoreAlreadyExists) {
		// lost a race with another process creating it
		s, err = Open(ctx, location)
		return s, false, err
	}
	return s, err == nil, err
}

func open(location string) (*Store, error) {
	db, err := sql.Open("sqlite3", location)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection also keeps the
	// per-connection pragmas below in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, location: location}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Location returns the path the store was opened from.
func (s *Store) Location() string {
	return s.location
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	for key, value := range map[string]string{
		metaFormatVersion:   FormatVersion,
		metaDigestAlgorithm: digest.Algorithm,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("write meta %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// verify checks that the database carries a format version and digest
// algorithm this build understands.
func (s *Store) verify(ctx context.Context) error {
	meta, err := s.Meta(ctx)
	if err != nil {
		return err
	}
	if meta.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format version %q (want %q)", meta.FormatVersion, FormatVersion)
	}
	if meta.DigestAlgorithm != digest.Algorithm {
		return fmt.Errorf("unsupported digest algorithm %q (want %q)", meta.DigestAlgorithm, digest.Algorithm)
	}
	return nil
}

// Meta reads the store's format metadata.
func (s *Store) Meta(ctx context.Context) (Meta, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return Meta{}, fmt.Errorf("query meta: %w", err)
	}
	defer rows.Close()

	var meta Meta
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Meta{}, fmt.Errorf("scan meta: %w", err)
		}
		switch key {
		case metaFormatVersion:
			meta.FormatVersion = value
		case metaDigestAlgorithm:
			meta.DigestAlgorithm = value
		}
	}
	if err := rows.Err(); err != nil {
		return Meta{}, fmt.Errorf("iterate meta: %w", err)
	}
	if meta.FormatVersion == "" {
		return Meta{}, errors.New("missing format version")
	}
	return meta, nil
}

// removeFiles deletes a half-created store and its WAL side files.
func removeFiles(location string) {
	for _, p := range []string{location, location + "-wal", location + "-shm", location + "-journal"} {
		_ = os.Remove(p)
	}
}
