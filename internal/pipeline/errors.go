package pipeline

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitUsage      = 2
	ExitProcessing = 3
	ExitWrite      = 4
)

// UsageError reports bad input from the caller: missing files, bad ranges.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// ProcessingError reports a failure while rendering, recognizing, merging
// or decoding.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// WriteError reports a failure attaching the outline to the document.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "write: " + e.Err.Error() }
func (e *WriteError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		usage *UsageError
		proc  *ProcessingError
		write *WriteError
	)
	switch {
	case errors.As(err, &usage):
		return ExitUsage
	case errors.As(err, &write):
		return ExitWrite
	case errors.As(err, &proc):
		return ExitProcessing
	default:
		return ExitFailure
	}
}
