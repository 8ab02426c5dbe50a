// Package digest computes content fingerprints of files.
//
// A digest is the lowercase hex SHA-256 of a file's complete byte stream. It
// depends on content only, never on names, timestamps or permissions.
package digest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"

	"github.com/sourcegraph/conc/stream"
	"github.com/spf13/afero"

	"github.com/roach88/fcd/internal/fcderr"
)

// Algorithm names the hash function; it is recorded in store metadata.
const Algorithm = "sha256"

// Size is the length of a digest in hex characters.
const Size = sha256.Size * 2

// Reader hashes everything readable from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File hashes the file at path. Failures are IO_ERROR and keep the
// underlying fs error in the chain.
func File(fsys afero.Fs, path string) (string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return "", fcderr.Wrapf(err, fcderr.IOError, "open %s", path).WithDetail("path", path)
	}
	defer func() {
		_ = f.Close()
	}()

	sum, err := Reader(f)
	if err != nil {
		return "", fcderr.Wrapf(err, fcderr.IOError, "read %s", path).WithDetail("path", path)
	}
	return sum, nil
}

// Valid reports whether s looks like a digest produced by this package.
func Valid(s string) bool {
	if len(s) != Size {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// Many hashes paths and calls fn once per path. Calls to fn never overlap
// and happen in input order. At most jobs files are read at once; jobs <= 1
// hashes sequentially on the calling goroutine.
//
// Per-file failures are passed to fn. Many itself only fails when ctx is
// cancelled; fn is not called for paths that were never submitted.
func Many(ctx context.Context, fsys afero.Fs, paths []string, jobs int, fn func(path, sum string, err error)) error {
	if jobs <= 1 {
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := File(fsys, path)
			fn(path, sum, err)
		}
		return nil
	}

	s := stream.New().WithMaxGoroutines(jobs)
	var cancelled error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		s.Go(func() stream.Callback {
			sum, err := File(fsys, path)
			return func() { fn(path, sum, err) }
		})
	}
	s.Wait()
	return cancelled
}
