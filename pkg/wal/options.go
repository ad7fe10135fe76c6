package wal

import (
	"fmt"
	"os"
	"strings"

	"github.com/dd0wney/cluso-wal/pkg/lock"
	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
)

// SyncMode controls whether appends fsync.
type SyncMode int

const (
	// SyncAlways fsyncs after each of the two append phases.
	SyncAlways SyncMode = iota
	// SyncNone skips the per-append fsyncs. Flush, Compact, Restart and Close
	// still sync. Intended for tests and benchmarks.
	SyncNone
)

func (m SyncMode) String() string {
	switch m {
	case SyncAlways:
		return "always"
	case SyncNone:
		return "none"
	default:
		return fmt.Sprintf("SyncMode(%d)", int(m))
	}
}

// ParseSyncMode parses "always" or "none".
func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(s) {
	case "always", "":
		return SyncAlways, nil
	case "none":
		return SyncNone, nil
	default:
		return SyncAlways, fmt.Errorf("unknown sync mode %q", s)
	}
}

// DefaultReadBufferSize is the chunk size used to stream payloads to readers.
const DefaultReadBufferSize = 8 * 1024

// Options configures a LogFile. The zero value is ready to use.
type Options struct {
	// Logger receives lifecycle events. Defaults to a NopLogger.
	Logger logging.Logger
	// Metrics, if set, records append, read and maintenance metrics.
	Metrics *metrics.Registry
	// Locker provides the exclusive lock. Defaults to lock.FileLocker.
	Locker lock.Locker
	SyncMode SyncMode
	// ReadBufferSize bounds the memory used per streamed payload chunk.
	ReadBufferSize int
	// FileMode is used when creating the log file. Defaults to 0644.
	FileMode os.FileMode

	openFile openFileFunc
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logging.NewNopLogger()
	}
	if o.FileMode == 0 {
		o.FileMode = 0644
	}
	if o.Locker == nil {
		o.Locker = lock.FileLocker{Mode: o.FileMode}
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	if o.openFile == nil {
		o.openFile = osOpenFile
	}
	return o
}
