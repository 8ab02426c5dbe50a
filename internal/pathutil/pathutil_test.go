package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fcd/internal/fcderr"
)

// realTempDir returns t.TempDir() with symlinks resolved (macOS /var -> /private/var).
func realTempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestNormalize_RelativeBecomesAbsolute(t *testing.T) {
	dir := realTempDir(t)
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	got, err := Normalize("./sub/../a.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), got)
}

func TestNormalize_ResolvesSymlinkedParent(t *testing.T) {
	dir := realTempDir(t)
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(real, "f.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "link")))

	viaLink, err := Normalize(filepath.Join(dir, "link", "f.txt"))
	require.NoError(t, err)
	direct, err := Normalize(filepath.Join(real, "f.txt"))
	require.NoError(t, err)

	assert.Equal(t, direct, viaLink)
	assert.Equal(t, filepath.Join(real, "f.txt"), viaLink)
}

func TestNormalize_SymlinkedDirectoryIsResolved(t *testing.T) {
	dir := realTempDir(t)
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	require.NoError(t, os.Symlink(real, filepath.Join(dir, "link")))

	got, err := Normalize(filepath.Join(dir, "link"))
	require.NoError(t, err)
	assert.Equal(t, real, got)
}

func TestNormalize_SymlinkedFileKeepsItsName(t *testing.T) {
	dir := realTempDir(t)
	target := filepath.Join(dir, "target.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(dir, "alias.txt")
	require.NoError(t, os.Symlink(target, link))

	got, err := Normalize(link)
	require.NoError(t, err)
	assert.Equal(t, link, got)
}

func TestNormalize_MissingPathKeepsTail(t *testing.T) {
	dir := realTempDir(t)

	got, err := Normalize(filepath.Join(dir, "gone", "deeper", "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gone", "deeper", "x.txt"), got)
}

func TestNormalize_Empty(t *testing.T) {
	_, err := Normalize("")
	assert.Error(t, err)
}

func TestKey_NFCAndNFDCollapse(t *testing.T) {
	nfc := "/data/caf\u00e9.txt"
	nfd := "/data/cafe\u0301.txt"

	assert.NotEqual(t, nfc, nfd)
	assert.Equal(t, Key(nfc), Key(nfd))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		root, path string
		want       bool
	}{
		{"/a/b", "/a/b", true},
		{"/a/b", "/a/b/c.txt", true},
		{"/a/b", "/a/b/c/d.txt", true},
		{"/a/b", "/a/bc/d.txt", false},
		{"/a/b", "/a", false},
		{"/", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.root+"|"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.root, tt.path))
		})
	}
}

func TestResolve_EmptyIsInvalidInput(t *testing.T) {
	_, err := Resolve("")
	assert.True(t, fcderr.IsCode(err, fcderr.InvalidInput), "error: %v", err)
}

func TestResolve_MatchesNormalize(t *testing.T) {
	dir := realTempDir(t)
	target := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(target, 0o755))
	link := filepath.Join(dir, "link")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	for _, path := range []string{link, filepath.Join(link, "a.txt"), filepath.Join(dir, "missing", "x")} {
		want, err := Normalize(path)
		require.NoError(t, err)
		got, err := Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
