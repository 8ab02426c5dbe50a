// Package runid names a single fcd invocation.
//
// The id ties together the log lines of one run and is echoed as run_id in
// structured (json/yaml) output.
package runid

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// FieldName is the log and output key carrying the id.
const FieldName = "run_id"

// Source returns the id for the run that is starting.
type Source func() string

// New returns a UUIDv7, so ids from successive runs sort by start time in a
// shared log file. It falls back to a random UUID if the clock-based one
// cannot be built; a run always gets an id.
func New() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Fixed returns a Source that names every run id. Tests use it to keep
// structured output stable.
func Fixed(id string) Source {
	return func() string { return id }
}

// Attach stamps id on every line written through l.
func Attach(l zerolog.Logger, id string) zerolog.Logger {
	return l.With().Str(FieldName, id).Logger()
}
