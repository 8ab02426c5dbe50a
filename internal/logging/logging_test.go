package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{7, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelFor(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestSetup_QuietByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Console: &buf, NoColor: true})
	require.NoError(t, err)
	defer closeFn()

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetup_VerboseShowsInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Verbosity: 1, Console: &buf, NoColor: true})
	require.NoError(t, err)
	defer closeFn()

	component := Component(logger, "reconcile")
	component.Info().Str("root", "/data").Msg("reconciled")

	out := buf.String()
	assert.Contains(t, out, "reconciled")
	assert.Contains(t, out, "component=reconcile")
	assert.Contains(t, out, "root=/data")
}

func TestSetup_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "fcd.log")
	var console bytes.Buffer

	logger, closeFn, err := Setup(Options{Console: &console, NoColor: true, File: path})
	require.NoError(t, err)
	logger.Warn().Str("path", "/x").Msg("cannot read file")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/x", entry["path"])
	assert.Equal(t, "cannot read file", entry["message"])
}

func TestSetup_AppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fcd.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"earlier\":true}\n"), 0o644))

	logger, closeFn, err := Setup(Options{Console: &bytes.Buffer{}, File: path})
	require.NoError(t, err)
	logger.Error().Msg("later")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\"earlier\":true}\n"))
	assert.Contains(t, string(data), "later")
}

func TestSetup_BadLogFile(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, _, err := Setup(Options{Console: &bytes.Buffer{}, File: filepath.Join(blocker, "sub", "fcd.log")})
	assert.Error(t, err)
}

func TestTimed(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	done := Timed(logger, "check")
	done()

	out := buf.String()
	assert.Contains(t, out, `"operation started"`)
	assert.Contains(t, out, `"operation completed"`)
	assert.Contains(t, out, `"duration"`)
}
