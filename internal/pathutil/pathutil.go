// Package pathutil normalizes filesystem paths so that records written at
// registration time and paths discovered during a walk compare equal.
//
// A normalized path is absolute and clean, and every directory component is
// resolved through symlinks. The final component is kept as-is unless it is
// a symlink to a directory, in which case it is resolved as well. That keeps a
// symlinked file addressable under its own name while making a symlinked
// root and its target walk to the same set of paths.
package pathutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fcd/internal/fcderr"
)

// Resolve is Normalize for caller-supplied paths: an empty path is
// INVALID_INPUT and a path that cannot be resolved is IO_ERROR carrying the
// path detail.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", fcderr.New(fcderr.InvalidInput, "empty path")
	}
	resolved, err := Normalize(path)
	if err != nil {
		return "", fcderr.Wrapf(err, fcderr.IOError, "resolve %s", path).WithDetail("path", path)
	}
	return resolved, nil
}

// Normalize returns the canonical form of path.
// Components that do not exist yet are kept lexically; the deepest existing
// ancestor is resolved.
func Normalize(path string) (string, error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	dir, base := filepath.Split(abs)
	if base == "" {
		// abs is the volume root
		return abs, nil
	}
	resolvedDir, err := resolveExisting(filepath.Clean(dir))
	if err != nil {
		return "", err
	}
	full := filepath.Join(resolvedDir, base)

	info, err := os.Lstat(full)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return full, nil
	}
	if target, err := os.Stat(full); err == nil && target.IsDir() {
		return filepath.EvalSymlinks(full)
	}
	return full, nil
}

// resolveExisting resolves symlinks in p, walking up to the deepest ancestor
// that exists and re-appending the missing tail.
func resolveExisting(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}
	r, err := resolveExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(r, filepath.Base(p)), nil
}

// Key returns the comparison key for a normalized path. Two paths that only
// differ in Unicode normalization form (NFC vs NFD, as produced by some
// filesystems) share a key.
func Key(path string) string {
	return norm.NFC.String(path)
}

// DirPrefix returns root with exactly one trailing separator.
func DirPrefix(root string) string {
	if strings.HasSuffix(root, string(filepath.Separator)) {
		return root
	}
	return root + string(filepath.Separator)
}

// Within reports whether path is root itself or lies below it.
// "/a/b" is not within "/a/bc".
func Within(root, path string) bool {
	return path == root || strings.HasPrefix(path, DirPrefix(root))
}
