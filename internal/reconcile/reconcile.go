// Package reconcile compares the filesystem against the record store and
// classifies every discrepancy.
//
// A subtree check is a set difference over normalized path keys:
//
//	D = records under root, F = files walked under root
//	D \ F  -> DELETED
//	F \ D  -> UNTRACKED
//	F ∩ D  -> hashed, OK or MISMATCH
//
// Files that cannot be read become UNREADABLE entries; a single bad file never
// aborts the batch. The store is only read, never written.
package reconcile

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/roach88/fcd/internal/digest"
	"github.com/roach88/fcd/internal/fcderr"
	"github.com/roach88/fcd/internal/pathutil"
	"github.com/roach88/fcd/internal/store"
	"github.com/roach88/fcd/internal/walker"
)

// Records is the read side of the record store.
type Records interface {
	Get(ctx context.Context, path string) (store.Record, bool, error)
	List(ctx context.Context) ([]store.Record, error)
	ListPrefix(ctx context.Context, root string) ([]store.Record, error)
}

// Reconciler runs checks against one store.
type Reconciler struct {
	records Records
	fsys    afero.Fs
	jobs    int
	log     zerolog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithFs replaces the filesystem (default: the OS filesystem).
func WithFs(fsys afero.Fs) Option {
	return func(r *Reconciler) {
		r.fsys = fsys
	}
}

// WithJobs sets how many files are hashed concurrently. Default 1.
func WithJobs(jobs int) Option {
	return func(r *Reconciler) {
		r.jobs = jobs
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.log = log
	}
}

// New creates a Reconciler reading from records.
func New(records Records, opts ...Option) *Reconciler {
	r := &Reconciler{
		records: records,
		fsys:    afero.NewOsFs(),
		jobs:    1,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CheckSingle checks one registered file. A path with no record is a
// FILE_NOT_FOUND failure ("not tracked"), not an entry. The record is found
// by Lookup, so the path may differ from it in Unicode normalization.
func (r *Reconciler) CheckSingle(ctx context.Context, path string) (Entry, error) {
	norm, err := pathutil.Resolve(path)
	if err != nil {
		return Entry{}, err
	}

	rec, ok, err := Lookup(ctx, r.records, norm)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, NotTracked(norm)
	}

	sum, hashErr := digest.File(r.fsys, rec.Path)
	if hashErr != nil && errors.Is(hashErr, fs.ErrNotExist) && rec.Path != norm {
		sum, hashErr = digest.File(r.fsys, norm)
	}
	entry := classify(rec, sum, hashErr)
	r.log.Debug().Str("path", norm).Str("status", string(entry.Status)).Msg("checked file")
	return entry, nil
}

// Lookup finds the record for a normalized path. An exact match wins;
// otherwise records are compared by key, so a path spelled in NFC finds a
// record stored in NFD and the other way round. Two records sharing the key
// are PATH_AMBIGUOUS.
func Lookup(ctx context.Context, records Records, path string) (store.Record, bool, error) {
	rec, ok, err := records.Get(ctx, path)
	if err != nil {
		return store.Record{}, false, fcderr.Wrap(err, fcderr.IOError, "read record").WithDetail("path", path)
	}
	if ok {
		return rec, true, nil
	}

	// The record may spell any non-ASCII ancestor differently, so search
	// from the deepest ancestor that reads the same in every form.
	anchor := asciiAncestor(path)
	candidates, err := records.ListPrefix(ctx, anchor)
	if err != nil {
		return store.Record{}, false, fcderr.Wrap(err, fcderr.IOError, "list records").WithDetail("root", anchor)
	}

	key := pathutil.Key(path)
	var found bool
	for _, c := range candidates {
		if pathutil.Key(c.Path) != key {
			continue
		}
		if found {
			return store.Record{}, false, ambiguous("two records share a comparison key", c.Path).WithDetail("other", rec.Path)
		}
		rec, found = c, true
	}
	return rec, found, nil
}

func asciiAncestor(path string) string {
	dir := filepath.Dir(path)
	for !isASCII(dir) {
		dir = filepath.Dir(dir)
	}
	return dir
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// CheckAll checks every record in the store. It never walks the filesystem,
// so files that were never registered are not reported.
func (r *Reconciler) CheckAll(ctx context.Context) (Result, error) {
	recs, err := r.records.List(ctx)
	if err != nil {
		return Result{}, fcderr.Wrap(err, fcderr.IOError, "list records")
	}

	paths := make([]string, len(recs))
	for i, rec := range recs {
		paths[i] = rec.Path
	}
	entries, err := r.hash(ctx, paths, recs)
	if err != nil {
		return Result{}, err
	}
	sortEntries(entries)

	res := Result{Entries: entries, Known: len(recs)}
	r.logResult("all", "", res)
	return res, nil
}

// CheckSubtree reconciles everything at or below root. A root that does not
// exist yields no files, so every record under it is DELETED.
func (r *Reconciler) CheckSubtree(ctx context.Context, root string) (Result, error) {
	norm, err := pathutil.Resolve(root)
	if err != nil {
		return Result{}, err
	}

	recs, err := r.records.ListPrefix(ctx, norm)
	if err != nil {
		return Result{}, fcderr.Wrap(err, fcderr.IOError, "list records").WithDetail("root", norm)
	}

	known := make(map[string]store.Record, len(recs))
	for _, rec := range recs {
		if !pathutil.Within(norm, rec.Path) {
			return Result{}, ambiguous("record outside checked root", rec.Path).WithDetail("root", norm)
		}
		key := pathutil.Key(rec.Path)
		if prev, dup := known[key]; dup {
			return Result{}, ambiguous("two records share a comparison key", rec.Path).WithDetail("other", prev.Path)
		}
		known[key] = rec
	}

	var (
		entries []Entry
		failed  []Entry
		onDisk  []string
		tracked []store.Record
	)
	seen := make(map[string]string)
	for path, walkErr := range walker.Files(r.fsys, norm) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		key := pathutil.Key(path)
		if prev, dup := seen[key]; dup {
			return Result{}, ambiguous("two files share a comparison key", path).WithDetail("other", prev)
		}
		seen[key] = path

		rec, isTracked := known[key]
		switch {
		case walkErr != nil:
			e := Entry{Path: path, Status: Unreadable, Err: walkErr}
			if isTracked {
				e.Path = rec.Path
				e.StoredDigest = rec.Digest
			}
			failed = append(failed, e)
		case isTracked:
			onDisk = append(onDisk, path)
			tracked = append(tracked, rec)
		default:
			entries = append(entries, Entry{Path: path, Status: Untracked})
		}
	}
	entries = append(entries, failed...)

	for key, rec := range known {
		if _, present := seen[key]; present {
			continue
		}
		// A record below a directory that could not be listed is unknown, not gone.
		if blocked, ok := coveringFailure(failed, rec.Path); ok {
			entries = append(entries, Entry{Path: rec.Path, Status: Unreadable, StoredDigest: rec.Digest, Err: blocked.Err})
			continue
		}
		entries = append(entries, Entry{Path: rec.Path, Status: Deleted, StoredDigest: rec.Digest})
	}

	hashed, err := r.hash(ctx, onDisk, tracked)
	if err != nil {
		return Result{}, err
	}
	entries = append(entries, hashed...)
	sortEntries(entries)

	res := Result{Entries: entries, Scanned: len(seen), Known: len(recs)}
	r.logResult("subtree", norm, res)
	return res, nil
}

// hash reads paths[i] and classifies it against recs[i]. The file on disk
// may be spelled differently from the record (Unicode normalization); the
// entry always carries the record's path.
func (r *Reconciler) hash(ctx context.Context, paths []string, recs []store.Record) ([]Entry, error) {
	byPath := make(map[string]store.Record, len(recs))
	for i, rec := range recs {
		byPath[paths[i]] = rec
	}

	entries := make([]Entry, 0, len(recs))
	err := digest.Many(ctx, r.fsys, paths, r.jobs, func(path, sum string, err error) {
		e := classify(byPath[path], sum, err)
		if e.Status == Unreadable {
			r.log.Warn().Err(err).Str("path", path).Msg("cannot read file")
		}
		entries = append(entries, e)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Reconciler) logResult(mode, root string, res Result) {
	sum := res.Summary()
	ev := r.log.Info().
		Str("mode", mode).
		Int("known", res.Known).
		Int("ok", sum.OK).
		Int("deleted", sum.Deleted).
		Int("mismatch", sum.Mismatch).
		Int("untracked", sum.Untracked).
		Int("unreadable", sum.Unreadable)
	if root != "" {
		ev = ev.Str("root", root).Int("scanned", res.Scanned)
	}
	ev.Msg("reconciled")
}

// classify turns a record and the outcome of hashing its path into an entry.
// A file that vanished before it could be hashed counts as deleted.
func classify(rec store.Record, sum string, err error) Entry {
	e := Entry{Path: rec.Path, StoredDigest: rec.Digest}
	switch {
	case err != nil && errors.Is(err, fs.ErrNotExist):
		e.Status = Deleted
	case err != nil:
		e.Status = Unreadable
		e.Err = err
	case sum == rec.Digest:
		e.Status = OK
		e.CurrentDigest = sum
	default:
		e.Status = Mismatch
		e.CurrentDigest = sum
	}
	return e
}

func coveringFailure(failed []Entry, path string) (Entry, bool) {
	for _, f := range failed {
		if pathutil.Within(f.Path, path) {
			return f, true
		}
	}
	return Entry{}, false
}

func ambiguous(msg, path string) *fcderr.Error {
	return fcderr.New(fcderr.PathAmbiguous, msg+": "+path).WithDetail("path", path)
}

// NotTracked is the failure for a path that has no record.
func NotTracked(path string) error {
	return fcderr.Newf(fcderr.FileNotFound, "%s is not tracked", path).
		WithDetail("path", path).
		WithDetail("reason", "not_tracked")
}

// IsNotTracked reports whether err came from NotTracked.
func IsNotTracked(err error) bool {
	return fcderr.IsCode(err, fcderr.FileNotFound) && fcderr.DetailsOf(err)["reason"] == "not_tracked"
}
