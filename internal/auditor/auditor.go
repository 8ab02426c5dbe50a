// Package auditor is the entry point to change detection. Every operation
// takes the store location explicitly; there is no process-wide default.
package auditor

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/roach88/fcd/internal/fcderr"
	"github.com/roach88/fcd/internal/logging"
	"github.com/roach88/fcd/internal/pathutil"
	"github.com/roach88/fcd/internal/reconcile"
	"github.com/roach88/fcd/internal/register"
	"github.com/roach88/fcd/internal/snapshot"
	"github.com/roach88/fcd/internal/store"
)

// Clock supplies registration and export timestamps.
type Clock = register.Clock

// Auditor runs operations against record stores.
type Auditor struct {
	fsys  afero.Fs
	clock Clock
	jobs  int
	log   zerolog.Logger
}

// Option configures an Auditor.
type Option func(*Auditor)

// WithFs replaces the filesystem that is walked and hashed.
func WithFs(fsys afero.Fs) Option {
	return func(a *Auditor) { a.fsys = fsys }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(a *Auditor) { a.clock = c }
}

// WithJobs sets how many files are hashed concurrently.
func WithJobs(jobs int) Option {
	return func(a *Auditor) { a.jobs = jobs }
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(a *Auditor) { a.log = log }
}

// New creates an Auditor.
func New(opts ...Option) *Auditor {
	a := &Auditor{
		fsys:  afero.NewOsFs(),
		clock: register.SystemClock{},
		jobs:  1,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dispatch runs op.
func (a *Auditor) Dispatch(ctx context.Context, op Operation) (Outcome, error) {
	if op == nil {
		return Outcome{}, fcderr.New(fcderr.InvalidInput, "no operation")
	}
	done := logging.Timed(a.log, opName(op))
	defer done()

	out := Outcome{Op: op}
	var err error

	switch op := op.(type) {
	case Init:
		err = a.InitStore(ctx, op.Location)
	case Add:
		var res register.Result
		res, err = a.RegisterFile(ctx, op.Location, op.Path)
		if err == nil {
			out.Registered = []register.Result{res}
		}
	case AddFolder:
		out.Registered, err = a.RegisterSubtree(ctx, op.Location, op.Root)
	case Remove:
		out.Path, out.Removed, err = a.RemoveRecord(ctx, op.Location, op.Path)
	case List:
		out.Records, err = a.ListRecords(ctx, op.Location, op.Prefix)
	case Check:
		out.Mode, out.Root, out.Result, err = a.check(ctx, op)
	case Export:
		out.Transferred, err = a.Export(ctx, op.Location, op.Out)
	case Import:
		out.Transferred, err = a.Import(ctx, op.Location, op.In)
	default:
		err = fcderr.Newf(fcderr.InvalidInput, "unsupported operation %T", op)
	}

	if err != nil {
		return Outcome{Op: op}, err
	}
	return out, nil
}

// InitStore creates an empty store at location.
func (a *Auditor) InitStore(ctx context.Context, location string) error {
	if err := requireLocation(location); err != nil {
		return err
	}
	s, err := store.Initialize(ctx, location)
	if err != nil {
		return err
	}
	a.log.Info().Str("location", location).Msg("store initialized")
	return s.Close()
}

// RegisterFile records the current digest of path. A missing store is
// created.
func (a *Auditor) RegisterFile(ctx context.Context, location, path string) (register.Result, error) {
	s, err := a.openOrInit(ctx, location)
	if err != nil {
		return register.Result{}, err
	}
	defer s.Close()
	return a.registrar(s).RegisterFile(ctx, path)
}

// RegisterSubtree records every file below root. A missing store is created.
func (a *Auditor) RegisterSubtree(ctx context.Context, location, root string) ([]register.Result, error) {
	s, err := a.openOrInit(ctx, location)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return a.registrar(s).RegisterSubtree(ctx, root)
}

// RemoveRecord drops the record for path, matched as reconcile.Lookup does.
// Removing an untracked path is a no-op. The removed record's path is
// returned, or the normalized path when nothing was tracked.
func (a *Auditor) RemoveRecord(ctx context.Context, location, path string) (string, bool, error) {
	norm, err := pathutil.Resolve(path)
	if err != nil {
		return "", false, err
	}
	s, err := a.open(ctx, location)
	if err != nil {
		return "", false, err
	}
	defer s.Close()

	rec, ok, err := reconcile.Lookup(ctx, s, norm)
	if err != nil {
		return "", false, err
	}
	if !ok {
		a.log.Info().Str("path", norm).Bool("removed", false).Msg("remove")
		return norm, false, nil
	}

	removed, err := s.Remove(ctx, rec.Path)
	if err != nil {
		return "", false, fcderr.Wrap(err, fcderr.IOError, "remove record").WithDetail("path", rec.Path)
	}
	a.log.Info().Str("path", rec.Path).Bool("removed", removed).Msg("remove")
	return rec.Path, removed, nil
}

// ListRecords returns all records, or those at or below prefix.
func (a *Auditor) ListRecords(ctx context.Context, location, prefix string) ([]store.Record, error) {
	s, err := a.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var recs []store.Record
	if prefix == "" {
		recs, err = s.List(ctx)
	} else {
		var norm string
		if norm, err = pathutil.Resolve(prefix); err != nil {
			return nil, err
		}
		recs, err = s.ListPrefix(ctx, norm)
	}
	if err != nil {
		return nil, fcderr.Wrap(err, fcderr.IOError, "list records")
	}
	return recs, nil
}

// CheckAll checks every record. Files that were never registered are not
// discovered.
func (a *Auditor) CheckAll(ctx context.Context, location string) (reconcile.Result, error) {
	s, err := a.open(ctx, location)
	if err != nil {
		return reconcile.Result{}, err
	}
	defer s.Close()
	return a.reconciler(s).CheckAll(ctx)
}

// CheckSubtree reconciles root against the records under it.
func (a *Auditor) CheckSubtree(ctx context.Context, location, root string) (reconcile.Result, error) {
	s, err := a.open(ctx, location)
	if err != nil {
		return reconcile.Result{}, err
	}
	defer s.Close()
	return a.reconciler(s).CheckSubtree(ctx, root)
}

// CheckSingle checks one registered file.
func (a *Auditor) CheckSingle(ctx context.Context, location, path string) (reconcile.Entry, error) {
	s, err := a.open(ctx, location)
	if err != nil {
		return reconcile.Entry{}, err
	}
	defer s.Close()
	return a.reconciler(s).CheckSingle(ctx, path)
}

// CheckPath checks a regular file on its own and anything else (a directory,
// or a path that no longer exists) as a subtree. An unregistered regular
// file is reported as a single UNTRACKED entry.
func (a *Auditor) CheckPath(ctx context.Context, location, path string) (CheckMode, reconcile.Result, error) {
	norm, err := pathutil.Resolve(path)
	if err != nil {
		return CheckAuto, reconcile.Result{}, err
	}

	info, err := a.fsys.Stat(norm)
	switch {
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return CheckAuto, reconcile.Result{}, fcderr.Wrapf(err, fcderr.IOError, "stat %s", norm).WithDetail("path", norm)
	case err == nil && info.Mode().IsRegular():
		entry, err := a.CheckSingle(ctx, location, norm)
		if reconcile.IsNotTracked(err) {
			return CheckSingle, reconcile.Result{
				Entries: []reconcile.Entry{{Path: norm, Status: reconcile.Untracked}},
				Scanned: 1,
			}, nil
		}
		if err != nil {
			return CheckSingle, reconcile.Result{}, err
		}
		return CheckSingle, reconcile.Result{Entries: []reconcile.Entry{entry}, Scanned: 1, Known: 1}, nil
	default:
		res, err := a.CheckSubtree(ctx, location, norm)
		return CheckSubtree, res, err
	}
}

// Export writes every record to w as a baseline and returns the count.
func (a *Auditor) Export(ctx context.Context, location string, w io.Writer) (int, error) {
	if w == nil {
		return 0, fcderr.New(fcderr.InvalidInput, "no export destination")
	}
	s, err := a.open(ctx, location)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	recs, err := s.List(ctx)
	if err != nil {
		return 0, fcderr.Wrap(err, fcderr.IOError, "list records")
	}
	if err := snapshot.Export(ctx, recs, w, a.clock.Now()); err != nil {
		return 0, err
	}
	a.log.Info().Int("records", len(recs)).Msg("exported baseline")
	return len(recs), nil
}

// Import merges a baseline into the store, creating the store if needed.
func (a *Auditor) Import(ctx context.Context, location string, r io.Reader) (int, error) {
	if r == nil {
		return 0, fcderr.New(fcderr.InvalidInput, "no import source")
	}
	s, err := a.openOrInit(ctx, location)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	n, err := snapshot.Import(ctx, r, s)
	if err != nil {
		return 0, err
	}
	a.log.Info().Int("records", n).Msg("imported baseline")
	return n, nil
}

func (a *Auditor) check(ctx context.Context, op Check) (CheckMode, string, reconcile.Result, error) {
	switch op.Mode {
	case CheckAll:
		res, err := a.CheckAll(ctx, op.Location)
		return CheckAll, "", res, err
	case CheckSingle:
		entry, err := a.CheckSingle(ctx, op.Location, op.Path)
		if err != nil {
			return CheckSingle, "", reconcile.Result{}, err
		}
		return CheckSingle, entry.Path, reconcile.Result{Entries: []reconcile.Entry{entry}, Scanned: 1, Known: 1}, nil
	case CheckSubtree:
		norm, err := pathutil.Resolve(op.Path)
		if err != nil {
			return CheckSubtree, "", reconcile.Result{}, err
		}
		res, err := a.CheckSubtree(ctx, op.Location, norm)
		return CheckSubtree, norm, res, err
	default:
		norm, err := pathutil.Resolve(op.Path)
		if err != nil {
			return CheckAuto, "", reconcile.Result{}, err
		}
		mode, res, err := a.CheckPath(ctx, op.Location, norm)
		return mode, norm, res, err
	}
}

func (a *Auditor) open(ctx context.Context, location string) (*store.Store, error) {
	if err := requireLocation(location); err != nil {
		return nil, err
	}
	return store.Open(ctx, location)
}

func (a *Auditor) openOrInit(ctx context.Context, location string) (*store.Store, error) {
	if err := requireLocation(location); err != nil {
		return nil, err
	}
	s, created, err := store.OpenOrInitialize(ctx, location)
	if err != nil {
		return nil, err
	}
	if created {
		a.log.Info().Str("location", location).Msg("store initialized")
	}
	return s, nil
}

func (a *Auditor) reconciler(s *store.Store) *reconcile.Reconciler {
	return reconcile.New(s,
		reconcile.WithFs(a.fsys),
		reconcile.WithJobs(a.jobs),
		reconcile.WithLogger(logging.Component(a.log, "reconcile")),
	)
}

func (a *Auditor) registrar(s *store.Store) *register.Registrar {
	return register.New(s,
		register.WithFs(a.fsys),
		register.WithClock(a.clock),
		register.WithJobs(a.jobs),
		register.WithLogger(logging.Component(a.log, "register")),
	)
}

func requireLocation(location string) error {
	if location == "" {
		return fcderr.New(fcderr.InvalidInput, "no store location given")
	}
	return nil
}

func opName(op Operation) string {
	switch op.(type) {
	case Init:
		return "init"
	case Add:
		return "add"
	case AddFolder:
		return "add-folder"
	case Remove:
		return "remove"
	case List:
		return "list"
	case Check:
		return "check"
	case Export:
		return "export"
	case Import:
		return "import"
	}
	return "unknown"
}
