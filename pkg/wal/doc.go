// Package wal implements a single-file write-ahead log.
//
// A log is an append-only sequence of opaque payloads addressed by a
// monotonically increasing index. The file starts with an 8-byte header
// holding the index of the oldest retained entry, followed by entries of the
// form
//
//	[length uint64 LE][payload: length bytes][crc32 uint32 LE]
//
// Entries carry no stored index; an entry's index is its position after the
// header plus the header's first index.
//
// # Durability
//
// Write appends in two phases. The length and payload are written and
// synced, then the checksum is written and synced. The checksum write is the
// commit point: an entry whose checksum never reached the disk is treated as
// an interrupted write and discarded by the next Open.
//
// Open scans the file once and truncates any incomplete trailing entry. The
// scan only checks that each entry is structurally complete; checksums are
// verified when an entry is read. Opening is O(entries), so callers should
// keep a LogFile open rather than reopening it frequently.
//
// # Cursors
//
// Reads go through an Entry cursor obtained from FirstEntry or Seek. A cursor
// is forward-only and single-use: every cursor method consumes its receiver
// and, on success, returns the cursor for the next position. Only one cursor
// (or Iterator, which owns one) may be checked out at a time. While it is out,
// every LogFile method other than FirstIndex, LastIndex, Len, Size and Path
// fails with ErrCursorActive. A cursor is checked back in when it reaches the
// end of the log, when any of its operations fails, or on Release.
//
// A LogFile is not safe for concurrent use by multiple goroutines. The
// cursor guard catches misuse from a single goroutine; it does not serialize
// concurrent callers.
//
// # Locking
//
// Open takes an exclusive lock through Options.Locker (by default a flock on
// "<path>.lock") and holds it until Close. A second Open of the same path
// fails immediately with ErrAlreadyLocked.
package wal
