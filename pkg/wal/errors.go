package wal

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-wal/pkg/lock"
)

// Sentinel errors. Failures are returned wrapped in a *LogError; test for
// them with errors.Is.
var (
	// ErrBadChecksum means an entry's payload does not match its stored
	// checksum, or the entry header is misaligned.
	ErrBadChecksum = errors.New("entry checksum mismatch")
	// ErrOutOfBounds means an index or range lies outside the retained entries,
	// or a cursor was asked to move backward.
	ErrOutOfBounds = errors.New("index out of bounds")
	// ErrAlreadyLocked means another handle holds the log's lock.
	ErrAlreadyLocked = fmt.Errorf("log is already open elsewhere: %w", lock.ErrLocked)
	// ErrCursorActive means a cursor or iterator is checked out.
	ErrCursorActive = errors.New("a cursor is checked out")
	// ErrCursorConsumed means the cursor was already used or released.
	ErrCursorConsumed = errors.New("cursor already consumed")
	// ErrClosed means the log has been closed.
	ErrClosed = errors.New("log is closed")
	// ErrNeedsRecovery means an append failed and its tail repair also
	// failed. Reopen the log, or Restart it, before writing again.
	ErrNeedsRecovery = errors.New("log tail is damaged, reopen to recover")
)

// LogError provides structured error information for log operations.
type LogError struct {
	Op    string // Operation that failed (e.g., "write", "compact")
	Path  string // Path of the log file
	Index uint64 // Entry index, if HasIndex
	Cause error  // Underlying error

	HasIndex bool
}

// Error implements the error interface.
func (e *LogError) Error() string {
	if e.HasIndex {
		return fmt.Sprintf("wal: %s %s index %d: %v", e.Op, e.Path, e.Index, e.Cause)
	}
	return fmt.Sprintf("wal: %s %s: %v", e.Op, e.Path, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LogError) Unwrap() error {
	return e.Cause
}

func (l *LogFile) opError(op string, cause error) error {
	return &LogError{Op: op, Path: l.path, Cause: cause}
}

func (l *LogFile) indexError(op string, index uint64, cause error) error {
	return &LogError{Op: op, Path: l.path, Index: index, HasIndex: true, Cause: cause}
}
