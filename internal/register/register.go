// Package register records the current digest of files as their known-good
// state.
package register

import (
	"context"
	"errors"
	"io/fs"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/roach88/fcd/internal/digest"
	"github.com/roach88/fcd/internal/fcderr"
	"github.com/roach88/fcd/internal/pathutil"
	"github.com/roach88/fcd/internal/store"
	"github.com/roach88/fcd/internal/walker"
)

// Clock supplies registration timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Writer is the write side of the record store.
type Writer interface {
	Put(ctx context.Context, rec store.Record) error
	PutMany(ctx context.Context, recs []store.Record) error
}

// Result is the outcome for one file. Err is set when the file was skipped.
type Result struct {
	Path   string
	Digest string
	Err    error
}

// Registrar writes records.
type Registrar struct {
	records Writer
	fsys    afero.Fs
	clock   Clock
	jobs    int
	log     zerolog.Logger
}

// Option configures a Registrar.
type Option func(*Registrar)

// WithFs replaces the filesystem (default: the OS filesystem).
func WithFs(fsys afero.Fs) Option {
	return func(r *Registrar) { r.fsys = fsys }
}

// WithClock replaces the clock used for registered_at.
func WithClock(c Clock) Option {
	return func(r *Registrar) { r.clock = c }
}

// WithJobs sets how many files are hashed concurrently. Default 1.
func WithJobs(jobs int) Option {
	return func(r *Registrar) { r.jobs = jobs }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Registrar) { r.log = log }
}

// New creates a Registrar writing to records.
func New(records Writer, opts ...Option) *Registrar {
	r := &Registrar{
		records: records,
		fsys:    afero.NewOsFs(),
		clock:   SystemClock{},
		jobs:    1,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterFile hashes one regular file and upserts its record. Registering
// an unchanged file again is a no-op apart from registered_at.
func (r *Registrar) RegisterFile(ctx context.Context, path string) (Result, error) {
	norm, err := pathutil.Resolve(path)
	if err != nil {
		return Result{}, err
	}

	info, err := r.fsys.Stat(norm)
	if err != nil {
		return Result{}, missing(norm, err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, fcderr.Newf(fcderr.FileNotFound, "%s is not a regular file", norm).WithDetail("path", norm)
	}

	sum, err := digest.File(r.fsys, norm)
	if err != nil {
		return Result{}, err
	}
	if err := r.records.Put(ctx, store.Record{Path: norm, Digest: sum, RegisteredAt: r.clock.Now()}); err != nil {
		return Result{}, fcderr.Wrap(err, fcderr.IOError, "write record").WithDetail("path", norm)
	}

	r.log.Info().Str("path", norm).Str("digest", sum).Msg("registered")
	return Result{Path: norm, Digest: sum}, nil
}

// RegisterSubtree registers every file below root. Files that cannot be read
// are reported in their Result and skipped; the rest are committed in one
// transaction. Results are in walk (lexical) order.
func (r *Registrar) RegisterSubtree(ctx context.Context, root string) ([]Result, error) {
	norm, err := pathutil.Resolve(root)
	if err != nil {
		return nil, err
	}
	if _, err := r.fsys.Stat(norm); err != nil {
		return nil, missing(norm, err)
	}

	var (
		results []Result
		paths   []string
	)
	for path, walkErr := range walker.Files(r.fsys, norm) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if walkErr != nil {
			results = append(results, Result{Path: path, Err: walkErr})
			continue
		}
		paths = append(paths, path)
	}

	now := r.clock.Now()
	hashed := make([]Result, 0, len(paths))
	recs := make([]store.Record, 0, len(paths))
	err = digest.Many(ctx, r.fsys, paths, r.jobs, func(path, sum string, err error) {
		if err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
			hashed = append(hashed, Result{Path: path, Err: err})
			return
		}
		hashed = append(hashed, Result{Path: path, Digest: sum})
		recs = append(recs, store.Record{Path: path, Digest: sum, RegisteredAt: now})
	})
	if err != nil {
		return nil, err
	}

	if err := r.records.PutMany(ctx, recs); err != nil {
		return nil, fcderr.Wrap(err, fcderr.IOError, "write records").WithDetail("root", norm)
	}

	results = append(results, hashed...)
	sortResults(results)
	r.log.Info().Str("root", norm).Int("registered", len(recs)).Int("skipped", len(results)-len(recs)).Msg("registered subtree")
	return results, nil
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

func sortResults(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
}


func missing(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fcderr.Wrapf(err, fcderr.FileNotFound, "%s does not exist", path).WithDetail("path", path)
	}
	return fcderr.Wrapf(err, fcderr.IOError, "stat %s", path).WithDetail("path", path)
}
