package wal

// Reader is the read side of a log.
type Reader interface {
	FirstIndex() uint64
	LastIndex() uint64
	Len() uint64
	Iter(r Range) (*Iterator, error)
}

// Writer is the append side of a log. Restart is included so that loaders
// can position an empty log before writing.
type Writer interface {
	Write(payload []byte) error
	Flush() error
	Restart(startingIndex uint64) error
}

// Compactor discards a prefix of a log.
type Compactor interface {
	Compact(newFirstIndex uint64) error
}

// Log is the full surface of a log file.
type Log interface {
	Reader
	Writer
	Compactor
	Close() error
}

var _ Log = (*LogFile)(nil)
