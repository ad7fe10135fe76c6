package export

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-wal/pkg/wal"
)

// Reader decodes an export stream. Use it like a wal.Iterator.
type Reader struct {
	sr    *snappy.Reader
	first uint64
	next  uint64
	index uint64
	value []byte
	err   error
}

// NewReader reads and checks the stream header.
func NewReader(r io.Reader) (*Reader, error) {
	sr := snappy.NewReader(r)

	magic := make([]byte, len(Magic))
	if _, err := io.ReadFull(sr, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMagic, err)
	}
	if string(magic) != Magic {
		return nil, ErrBadMagic
	}

	var version uint8
	if err := binary.Read(sr, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, version)
	}

	var first uint64
	if err := binary.Read(sr, binary.LittleEndian, &first); err != nil {
		return nil, err
	}
	return &Reader{sr: sr, first: first, next: first}, nil
}

// FirstIndex returns the index of the first record in the stream.
func (r *Reader) FirstIndex() uint64 { return r.first }

// Next decodes the next record. It returns false at the end of the stream
// or on error.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}

	var index uint64
	if err := binary.Read(r.sr, binary.LittleEndian, &index); err != nil {
		// A clean end falls exactly on a record boundary.
		if !errors.Is(err, io.EOF) {
			r.err = err
		}
		return false
	}
	if index != r.next {
		r.err = fmt.Errorf("%w: expected index %d, got %d", ErrIndexGap, r.next, index)
		return false
	}

	var length uint64
	if err := binary.Read(r.sr, binary.LittleEndian, &length); err != nil {
		r.err = unexpected(err)
		return false
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r.sr, int64(length)); err != nil {
		r.err = unexpected(err)
		return false
	}

	var sum uint32
	if err := binary.Read(r.sr, binary.LittleEndian, &sum); err != nil {
		r.err = unexpected(err)
		return false
	}
	if sum != wal.Checksum(buf.Bytes()) {
		r.err = fmt.Errorf("%w at index %d", ErrBadChecksum, index)
		return false
	}

	r.index, r.value = index, buf.Bytes()
	r.next++
	return true
}

func (r *Reader) Index() uint64 { return r.index }
func (r *Reader) Value() []byte { return r.value }
func (r *Reader) Err() error    { return r.err }

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
