package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TempDir returns t.TempDir() with symlinks resolved, so it matches the
// normalized form of any path built under it (macOS puts temp dirs behind
// /var -> /private/var).
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

// WriteTree creates files under root. Keys are slash-separated paths
// relative to root; values are file contents. Parent directories are
// created as needed.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// Symlink creates newname pointing at oldname, skipping the test if the
// platform refuses.
func Symlink(t *testing.T, oldname, newname string) {
	t.Helper()
	if err := os.Symlink(oldname, newname); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
}

// Unreadable removes all permissions from path for the duration of the test.
// Skips when permission bits are not enforced (root, Windows).
func Unreadable(t *testing.T, path string) {
	t.Helper()
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Chmod(path, 0))
	t.Cleanup(func() { _ = os.Chmod(path, info.Mode().Perm()) })

	// Some filesystems ignore mode bits entirely.
	if f, err := os.Open(path); err == nil {
		_ = f.Close()
		t.Skip("filesystem does not enforce permissions")
	}
}
