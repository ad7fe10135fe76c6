package wal

import (
	"errors"
	"hash/crc32"
	"io"

	"github.com/dd0wney/cluso-wal/pkg/metrics"
)

// Entry is a forward-only cursor positioned at the start of one entry.
//
// Every method except Index consumes the receiver. On success Seek and
// ReadToNext return a new cursor; the old one fails with ErrCursorConsumed.
// An Entry at index FirstIndex()+Len() is a valid end-of-log position that
// can be held but not read.
type Entry struct {
	log      *LogFile
	index    uint64
	gen      uint64
	consumed bool
}

// FirstEntry checks out a cursor at FirstIndex.
func (l *LogFile) FirstEntry() (*Entry, error) {
	return l.checkout("first_entry")
}

// Seek checks out a cursor at index. It is FirstEntry followed by
// Entry.Seek, and costs O(index - FirstIndex()).
func (l *LogFile) Seek(index uint64) (*Entry, error) {
	e, err := l.checkout("seek")
	if err != nil {
		return nil, err
	}
	return e.Seek(index)
}

func (l *LogFile) checkout(op string) (*Entry, error) {
	if l.closed {
		return nil, l.opError(op, ErrClosed)
	}
	if !l.checkedOut.CompareAndSwap(false, true) {
		return nil, l.opError(op, ErrCursorActive)
	}
	l.gen++

	if _, err := l.f.Seek(HeaderSize, io.SeekStart); err != nil {
		l.checkedOut.Store(false)
		return nil, l.opError(op, err)
	}
	return &Entry{log: l, index: l.first, gen: l.gen}, nil
}

func (l *LogFile) checkin(gen uint64) {
	if l.gen == gen {
		l.checkedOut.Store(false)
	}
}

// Index returns the index of the entry the cursor is positioned at.
func (e *Entry) Index() uint64 { return e.index }

// take validates the cursor and marks it consumed.
func (e *Entry) take(op string) error {
	l := e.log
	if l.closed {
		return l.opError(op, ErrClosed)
	}
	if e.consumed || !l.checkedOut.Load() || l.gen != e.gen {
		e.consumed = true
		return l.indexError(op, e.index, ErrCursorConsumed)
	}
	e.consumed = true
	return nil
}

// fail checks the cursor back in and returns err.
func (e *Entry) fail(err error) (*Entry, error) {
	e.log.checkin(e.gen)
	return nil, err
}

func (e *Entry) next(index uint64) *Entry {
	return &Entry{log: e.log, index: index, gen: e.gen}
}

// Release gives the cursor back to the log without reading. It is safe to
// call on a nil or already consumed cursor.
func (e *Entry) Release() {
	if e == nil || e.consumed {
		return
	}
	e.consumed = true
	e.log.checkin(e.gen)
}

// Seek moves forward to index by skipping the intervening entries. It fails
// with ErrOutOfBounds if index is behind the cursor or beyond
// FirstIndex()+Len().
func (e *Entry) Seek(to uint64) (*Entry, error) {
	if err := e.take("seek"); err != nil {
		return nil, err
	}
	l := e.log

	if to < e.index || to > l.first+l.length {
		return e.fail(l.indexError("seek", to, ErrOutOfBounds))
	}

	for i := e.index; i < to; i++ {
		length, err := readUint64(l.f)
		if err != nil {
			return e.fail(l.indexError("seek", i, err))
		}
		if length > uint64(l.size) {
			return e.fail(l.indexError("seek", i, ErrBadChecksum))
		}
		if _, err := l.f.Seek(int64(length)+ChecksumSize, io.SeekCurrent); err != nil {
			return e.fail(l.indexError("seek", i, err))
		}
	}
	return e.next(to), nil
}

// ReadToNext streams the entry's payload into w, verifies its checksum and
// returns the cursor for the following entry. At the end of the log it
// returns a nil cursor and a nil error, and the log is free again.
//
// The payload is copied in chunks of Options.ReadBufferSize. On
// ErrBadChecksum w has already received the corrupt payload.
func (e *Entry) ReadToNext(w io.Writer) (*Entry, error) {
	if err := e.take("read"); err != nil {
		return nil, err
	}
	l := e.log

	if e.index >= l.first+l.length {
		return e.fail(l.indexError("read", e.index, ErrOutOfBounds))
	}

	n, err := e.copyPayload(w)
	l.record(func(m *metrics.Registry) { m.RecordRead(n, errors.Is(err, ErrBadChecksum), err) })
	if err != nil {
		return e.fail(l.indexError("read", e.index, err))
	}

	next := e.index + 1
	if next >= l.first+l.length {
		l.checkin(e.gen)
		return nil, nil
	}
	return e.next(next), nil
}

func (e *Entry) copyPayload(w io.Writer) (int64, error) {
	l := e.log

	length, err := readUint64(l.f)
	if err != nil {
		return 0, err
	}
	if length > uint64(l.size) {
		return 0, ErrBadChecksum
	}

	hasher := crc32.NewIEEE()
	n, err := io.CopyBuffer(io.MultiWriter(hasher, w), io.LimitReader(l.f, int64(length)), l.readBuf)
	if err != nil {
		return n, err
	}
	if n != int64(length) {
		return n, io.ErrUnexpectedEOF
	}

	stored, err := readUint32(l.f)
	if err != nil {
		return n, err
	}
	if stored != hasher.Sum32() {
		return n, ErrBadChecksum
	}
	return n, nil
}
