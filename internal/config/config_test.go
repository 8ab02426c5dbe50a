package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fcd/internal/fcderr"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("fcd", pflag.ContinueOnError)
	fs.String("db", "", "")
	fs.Int("jobs", 0, "")
	fs.String("format", "", "")
	fs.String("color", "", "")
	fs.String("log-file", "", "")
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolate keeps the developer's environment out of the test.
func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{"FCD_DB", "FCD_JOBS", "FCD_FORMAT", "FCD_COLOR", "FCD_LOG_FILE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(testFlags(), writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, DefaultDB(), cfg.DB)
	assert.Equal(t, 1, cfg.Jobs)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, "auto", cfg.Color)
	assert.Empty(t, cfg.LogFile)
}

func TestLoad_ConfigFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "db: /srv/fcd.db\njobs: 4\nformat: json\ncolor: never\nlog_file: /var/log/fcd.log\n")

	cfg, err := Load(testFlags(), path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		DB: "/srv/fcd.db", Jobs: 4, Format: "json", Color: "never", LogFile: "/var/log/fcd.log", File: path,
	}, cfg)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "db: /srv/fcd.db\njobs: 4\n")
	t.Setenv("FCD_DB", "/env/fcd.db")
	t.Setenv("FCD_JOBS", "8")

	cfg, err := Load(testFlags(), path)
	require.NoError(t, err)
	assert.Equal(t, "/env/fcd.db", cfg.DB)
	assert.Equal(t, 8, cfg.Jobs)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	isolate(t)
	t.Setenv("FCD_DB", "/env/fcd.db")
	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--db", "/flag/fcd.db", "--log-file", "/tmp/x.log"}))

	cfg, err := Load(flags, writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "/flag/fcd.db", cfg.DB)
	assert.Equal(t, "/tmp/x.log", cfg.LogFile)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "format: yaml\n")

	cfg, err := Load(testFlags(), path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", cfg.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad format", "format: xml\n"},
		{"bad color", "color: sometimes\n"},
		{"zero jobs", "jobs: 0\n"},
		{"too many jobs", "jobs: 100000\n"},
		{"non-numeric jobs", "jobs: lots\n"},
		{"unknown key", "databse: /typo.db\n"},
		{"empty db", "db: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			_, err := Load(testFlags(), writeConfig(t, tt.content))
			require.Error(t, err)
			assert.True(t, fcderr.IsCode(err, fcderr.ConfigInvalid), "got %v", err)
		})
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	isolate(t)
	_, err := Load(testFlags(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, fcderr.IsCode(err, fcderr.ConfigInvalid))
}

func TestLoad_MissingDefaultConfigIsFine(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	_, err := Load(nil, "")
	require.NoError(t, err)
}

func TestLoad_NilFlags(t *testing.T) {
	isolate(t)
	cfg, err := Load(nil, writeConfig(t, "jobs: 3\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Jobs)
}

func TestPrepareDB_CreatesDefaultDataDir(t *testing.T) {
	isolate(t)
	t.Setenv("XDG_DATA_HOME", filepath.Join(t.TempDir(), "data"))
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	require.NoError(t, PrepareDB(DefaultDB()))
	info, err := os.Stat(filepath.Dir(DefaultDB()))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPrepareDB_LeavesOtherLocationsAlone(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	require.NoError(t, PrepareDB(filepath.Join(dir, "fcd.db")))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
