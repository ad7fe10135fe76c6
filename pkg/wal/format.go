package wal

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// On-disk sizes of the fixed fields.
const (
	HeaderSize   = 8
	LengthSize   = 8
	ChecksumSize = 4
)

// EntryOverhead is the number of bytes an entry occupies beyond its payload.
const EntryOverhead = LengthSize + ChecksumSize

// Checksum returns the CRC32 (IEEE) of payload as stored after each entry.
func Checksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}

func encodeUint64(v uint64) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b
}

func encodeUint32(v uint32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64At(r io.ReaderAt, off int64) (uint64, error) {
	var b [8]byte
	if _, err := r.ReadAt(b[:], off); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// entryEnd returns the offset just past an entry of the given payload length
// starting at pos, or false if the entry would extend beyond size.
func entryEnd(pos int64, length uint64, size int64) (int64, bool) {
	remaining := size - pos - LengthSize
	if remaining < ChecksumSize {
		return 0, false
	}
	if length > uint64(remaining-ChecksumSize) {
		return 0, false
	}
	return pos + EntryOverhead + int64(length), true
}
