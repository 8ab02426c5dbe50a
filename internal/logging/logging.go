// Package logging configures zerolog for the fcd command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options controls Setup.
type Options struct {
	// Verbosity is the number of -v flags.
	Verbosity int
	// Console receives human-readable log lines (default os.Stderr).
	Console io.Writer
	// NoColor disables colors in console lines.
	NoColor bool
	// File, when set, also receives JSON log lines in append mode.
	File string
}

// LevelFor maps a -v count to a level: warn, info, debug, then trace.
func LevelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Setup builds the process logger. The returned close function releases the
// log file, if any.
func Setup(opts Options) (zerolog.Logger, func() error, error) {
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	}}

	closeFn := func() error { return nil }
	if opts.File != "" {
		f, err := openLogFile(opts.File)
		if err != nil {
			return zerolog.Nop(), closeFn, err
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(LevelFor(opts.Verbosity)).
		With().Timestamp().Logger()

	if opts.Verbosity >= 2 {
		logger = logger.With().Caller().Logger()
	}

	logger.Debug().Int("verbosity", opts.Verbosity).Str("log_file", opts.File).Msg("logger initialized")
	return logger, closeFn, nil
}

// Component returns l tagged with a component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

// Timed logs the start of an operation at debug level and returns a function
// that logs its completion with the elapsed time.
func Timed(l zerolog.Logger, operation string) func() {
	start := time.Now()
	l.Debug().Str("operation", operation).Msg("operation started")

	return func() {
		l.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("operation completed")
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
