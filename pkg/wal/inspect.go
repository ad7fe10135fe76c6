package wal

import (
	"hash/crc32"
	"io"

	"golang.org/x/exp/mmap"
)

// Report describes the on-disk state of a log file.
type Report struct {
	Path     string
	FileSize int64
	// Uninitialized is set when the file is shorter than a header. Open
	// would reset such a file to an empty log at index 0.
	Uninitialized bool
	FirstIndex    uint64
	Entries       uint64
	// ValidBytes is the header plus all complete entries.
	ValidBytes int64
	// TornTailBytes is what Open would truncate.
	TornTailBytes int64
	// BadChecksums lists indices whose payload does not match its checksum.
	BadChecksums []uint64
}

// LastIndex returns the index of the newest complete entry. Meaningless when
// Entries is 0.
func (r *Report) LastIndex() uint64 { return r.FirstIndex + r.Entries - 1 }

// Healthy reports whether Open would change nothing and every entry is
// readable.
func (r *Report) Healthy() bool {
	return !r.Uninitialized && r.TornTailBytes == 0 && len(r.BadChecksums) == 0
}

// Inspect scans the log at path without locking or modifying it. Unlike
// Open it verifies every checksum, so it reads the whole file. The result
// may be stale if another process is appending.
func Inspect(path string) (*Report, error) {
	r, err := mmap.Open(path)
	if err != nil {
		return nil, &LogError{Op: "inspect", Path: path, Cause: err}
	}
	defer r.Close()

	size := int64(r.Len())
	report := &Report{Path: path, FileSize: size}
	if size < HeaderSize {
		report.Uninitialized = true
		report.TornTailBytes = size
		return report, nil
	}

	buf := make([]byte, DefaultReadBufferSize)
	hasher := crc32.NewIEEE()
	var ordinal uint64

	res, err := scanEntries(r, size, func(pos int64, length uint64) error {
		hasher.Reset()
		payload := io.NewSectionReader(r, pos+LengthSize, int64(length))
		if _, err := io.CopyBuffer(hasher, payload, buf); err != nil {
			return err
		}
		stored, err := readUint32(io.NewSectionReader(r, pos+LengthSize+int64(length), ChecksumSize))
		if err != nil {
			return err
		}
		if stored != hasher.Sum32() {
			report.BadChecksums = append(report.BadChecksums, ordinal)
		}
		ordinal++
		return nil
	})
	if err != nil {
		return nil, &LogError{Op: "inspect", Path: path, Cause: err}
	}

	for i := range report.BadChecksums {
		report.BadChecksums[i] += res.first
	}
	report.FirstIndex = res.first
	report.Entries = res.entries
	report.ValidBytes = res.end
	report.TornTailBytes = size - res.end
	return report, nil
}
