// Package walker enumerates the files below a root directory.
package walker

import (
	"errors"
	"io/fs"
	"iter"

	"github.com/spf13/afero"
)

var errStop = errors.New("walker: stopped")

// Files returns a lazy sequence of the regular files under root, in lexical
// order. Each call walks the tree again.
//
// Walk rules:
//   - directories are not yielded, and symlinked directories are not descended
//   - symlinks to regular files are yielded under the link's own path
//   - dangling symlinks and entries that vanish during the walk are skipped
//   - devices, sockets and pipes are skipped
//   - an entry that cannot be inspected (or a directory that cannot be
//     listed) is yielded with a non-nil error and the walk continues
//
// A missing root yields nothing. If root is itself a file it is yielded alone.
func Files(fsys afero.Fs, root string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		_ = afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				if !yield(path, err) {
					return errStop
				}
				return nil
			}

			mode := info.Mode()
			switch {
			case mode.IsDir():
				return nil
			case mode&fs.ModeSymlink != 0:
				target, statErr := fsys.Stat(path)
				if statErr != nil {
					if errors.Is(statErr, fs.ErrNotExist) {
						return nil
					}
					if !yield(path, statErr) {
						return errStop
					}
					return nil
				}
				if !target.Mode().IsRegular() {
					return nil
				}
			case !mode.IsRegular():
				return nil
			}

			if !yield(path, nil) {
				return errStop
			}
			return nil
		})
	}
}
