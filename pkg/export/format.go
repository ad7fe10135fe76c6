// Package export moves log entries in and out of a portable stream.
//
// An export is a snappy framed stream containing
//
//	"WALX" [version uint8] [first index uint64]
//	repeated: [index uint64][length uint64][payload][crc32 uint32]
//
// with integers little-endian. Indices are contiguous from the first index.
// Unlike the log file itself the stream carries a magic and version.
package export

import (
	"errors"
)

const (
	Magic   = "WALX"
	Version = 1
)

// FileExt is the conventional extension of export files.
const FileExt = ".walx"

var (
	ErrBadMagic    = errors.New("not an export stream")
	ErrBadVersion  = errors.New("unsupported export version")
	ErrBadChecksum = errors.New("export record checksum mismatch")
	// ErrIndexGap means records are not contiguous, either inside the stream
	// or between the stream and the log it is loaded into.
	ErrIndexGap = errors.New("index gap")
)
