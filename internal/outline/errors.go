package outline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks a recognition failure worth retrying (network, timeout, 5xx).
	ErrTransient = errors.New("transient recognition error")

	// ErrFatal marks a failure that retrying cannot fix (unreadable image,
	// response malformed beyond repair).
	ErrFatal = errors.New("fatal recognition error")

	// ErrCancelled is reported for pages stopped by caller cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrEmptyOutline is returned when there is nothing to write.
	ErrEmptyOutline = errors.New("outline has no entries")
)

// StageError carries the page and stage where a recognition failure happened.
// Kind is ErrTransient or ErrFatal so callers can use errors.Is.
type StageError struct {
	PageIndex int
	Stage     string
	Kind      error
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("page %d: %s: %v", e.PageIndex, e.Stage, e.Err)
}

// Unwrap exposes both the classification sentinel and the cause.
func (e *StageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Transient wraps err as a retryable failure.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// Fatal wraps err as a non-retryable failure.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrFatal, err)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) && !errors.Is(err, ErrFatal)
}

// ValidationError reports an entry that broke the model invariants.
type ValidationError struct {
	Entry    Entry
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid entry %s: %s", e.Entry, strings.Join(e.Problems, "; "))
}

// FormatError reports a text outline line that does not match the grammar.
type FormatError struct {
	Line   int
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Reason, e.Text)
}

// WriteGuardError is returned when pre-write validation refuses a write.
type WriteGuardError struct {
	Problems []string
}

func (e *WriteGuardError) Error() string {
	return "write refused: " + strings.Join(e.Problems, "; ")
}
