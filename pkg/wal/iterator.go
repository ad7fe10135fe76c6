package wal

import (
	"bytes"
	"math"
)

// BoundKind says how a Bound limits a range.
type BoundKind uint8

const (
	BoundUnbounded BoundKind = iota
	BoundIncluded
	BoundExcluded
)

// Bound is one end of a Range. The zero value is unbounded.
type Bound struct {
	Kind  BoundKind
	Index uint64
}

func Unbounded() Bound            { return Bound{} }
func Included(index uint64) Bound { return Bound{Kind: BoundIncluded, Index: index} }
func Excluded(index uint64) Bound { return Bound{Kind: BoundExcluded, Index: index} }

// Range selects a contiguous run of indices. The zero value selects all
// entries.
type Range struct {
	Start Bound
	End   Bound
}

// All selects every retained entry.
func All() Range { return Range{} }

// From selects entries from index onward.
func From(index uint64) Range { return Range{Start: Included(index)} }

// Between selects the half-open range [start, end).
func Between(start, end uint64) Range {
	return Range{Start: Included(start), End: Excluded(end)}
}

// Iterator yields payloads over a range in index order. It owns a cursor,
// so the log is unavailable for other operations until the iterator is
// exhausted, fails, or is closed.
//
//	it, err := log.Iter(wal.From(10))
//	if err != nil { ... }
//	defer it.Close()
//	for it.Next() {
//		handle(it.Index(), it.Value())
//	}
//	if err := it.Err(); err != nil { ... }
type Iterator struct {
	cur   *Entry
	last  uint64
	index uint64
	value []byte
	err   error
}

// Iter returns an iterator over r.
//
// The end bound is resolved against LastIndex: Included(x) needs
// x <= LastIndex() and Excluded(x) needs 1 <= x <= LastIndex()+1. The start
// bound is resolved by seeking, so a start before FirstIndex fails. Both fail
// with ErrOutOfBounds. Any range over an empty log yields nothing.
func (l *LogFile) Iter(r Range) (*Iterator, error) {
	if err := l.ready("iter"); err != nil {
		return nil, err
	}
	if l.length == 0 {
		return &Iterator{}, nil
	}

	last := l.LastIndex()
	switch r.End.Kind {
	case BoundIncluded:
		if r.End.Index > last {
			return nil, l.indexError("iter", r.End.Index, ErrOutOfBounds)
		}
		last = r.End.Index
	case BoundExcluded:
		if r.End.Index == 0 || r.End.Index-1 > last {
			return nil, l.indexError("iter", r.End.Index, ErrOutOfBounds)
		}
		last = r.End.Index - 1
	}

	cur, err := l.FirstEntry()
	if err != nil {
		return nil, err
	}
	switch r.Start.Kind {
	case BoundIncluded:
		cur, err = cur.Seek(r.Start.Index)
	case BoundExcluded:
		if r.Start.Index == math.MaxUint64 {
			cur.Release()
			return nil, l.indexError("iter", r.Start.Index, ErrOutOfBounds)
		}
		cur, err = cur.Seek(r.Start.Index + 1)
	}
	if err != nil {
		return nil, err
	}

	return &Iterator{cur: cur, last: last}, nil
}

// Next reads the next payload. It returns false when the range is exhausted
// or an error occurred; check Err to tell them apart.
func (it *Iterator) Next() bool {
	if it.cur == nil {
		return false
	}
	if it.cur.Index() > it.last {
		it.cur.Release()
		it.cur = nil
		return false
	}

	index := it.cur.Index()
	var buf bytes.Buffer
	next, err := it.cur.ReadToNext(&buf)
	if err != nil {
		it.err = err
		it.cur = nil
		return false
	}

	it.index, it.value = index, buf.Bytes()
	it.cur = next
	return true
}

// Value returns the payload read by the last successful Next. The slice is
// not reused by later calls.
func (it *Iterator) Value() []byte { return it.value }

// Index returns the index of the payload returned by Value.
func (it *Iterator) Index() uint64 { return it.index }

// Err returns the error that stopped iteration, if any.
func (it *Iterator) Err() error { return it.err }

// Close releases the iterator's cursor. It is safe to call more than once.
func (it *Iterator) Close() error {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
	return nil
}
