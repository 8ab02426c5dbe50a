package cli

import (
	"errors"
	"fmt"

	"github.com/roach88/fcd/internal/auditor"
	"github.com/roach88/fcd/internal/fcderr"
	"github.com/roach88/fcd/internal/report"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Clean result
	ExitFailure      = 1 // Discrepancies found (check entries not OK, files skipped during add)
	ExitCommandError = 2 // Command error (store not found, bad arguments, I/O failure, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitCommandError (2) if the error is not an ExitError, since
// ExitFailure is reserved for discrepancies.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// errDiscrepancies ends a command whose output has already been written.
var errDiscrepancies = NewExitError(ExitFailure, "discrepancies found")

// finish maps a rendered outcome to the command's exit status.
func finish(out auditor.Outcome, renderErr error) error {
	if renderErr != nil {
		return WrapExitError(ExitCommandError, "write output", renderErr)
	}
	if out.Discrepancies() {
		return errDiscrepancies
	}
	return nil
}

// reportError renders err as the command's error output. Discrepancies are
// not errors and have been rendered already.
func reportError(w *report.Writer, err error) {
	if GetExitCode(err) == ExitFailure {
		return
	}
	var fe *fcderr.Error
	if !errors.As(err, &fe) {
		// Argument and flag errors come straight from cobra.
		err = fcderr.Wrap(err, fcderr.InvalidInput, "invalid usage")
	}
	_ = w.Error(err)
}
