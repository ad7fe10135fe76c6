package export

import (
	"fmt"
	"io"

	"github.com/dd0wney/cluso-wal/pkg/wal"
)

// Stats summarizes a Dump or Load.
type Stats struct {
	FirstIndex uint64
	Records    uint64
	Skipped    uint64
	Bytes      int64
}

// Dump writes the entries of log selected by r to w as an export stream.
// The stream's first index is the range start even when the range is empty.
func Dump(log wal.Reader, r wal.Range, w io.Writer) (Stats, error) {
	first := rangeStart(log, r)

	it, err := log.Iter(r)
	if err != nil {
		return Stats{}, err
	}
	defer it.Close()

	ew, err := NewWriter(w, first)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to write export header: %w", err)
	}

	for it.Next() {
		if err := ew.Append(it.Index(), it.Value()); err != nil {
			return Stats{}, fmt.Errorf("failed to write record %d: %w", it.Index(), err)
		}
	}
	if err := it.Err(); err != nil {
		return Stats{}, err
	}
	if err := ew.Close(); err != nil {
		return Stats{}, fmt.Errorf("failed to flush export: %w", err)
	}

	return Stats{FirstIndex: first, Records: ew.Count(), Bytes: ew.bytes}, nil
}

func rangeStart(log wal.Reader, r wal.Range) uint64 {
	switch r.Start.Kind {
	case wal.BoundIncluded:
		return r.Start.Index
	case wal.BoundExcluded:
		return r.Start.Index + 1
	default:
		return log.FirstIndex()
	}
}

// Target is a log that an export can be loaded into.
type Target interface {
	wal.Writer
	FirstIndex() uint64
	Len() uint64
}

// Load appends the records of an export stream to log. An empty log is
// first restarted at the stream's first index. Records the log already has
// are skipped; a record beyond the log's next index fails with ErrIndexGap.
// Records appended before an error stay in the log.
func Load(r io.Reader, log Target) (Stats, error) {
	er, err := NewReader(r)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{FirstIndex: er.FirstIndex()}
	if log.Len() == 0 && log.FirstIndex() != er.FirstIndex() {
		if err := log.Restart(er.FirstIndex()); err != nil {
			return stats, err
		}
	}

	next := log.FirstIndex() + log.Len()
	for er.Next() {
		index := er.Index()
		switch {
		case index < next:
			stats.Skipped++
			continue
		case index > next:
			return stats, fmt.Errorf("%w: log ends before %d, export continues at %d", ErrIndexGap, next, index)
		}

		if err := log.Write(er.Value()); err != nil {
			return stats, err
		}
		next++
		stats.Records++
		stats.Bytes += int64(len(er.Value()))
	}
	if err := er.Err(); err != nil {
		return stats, err
	}

	// An export that starts past the end of a non-empty log with no records
	// still leaves a gap.
	if stats.Records == 0 && stats.Skipped == 0 && er.FirstIndex() > next {
		return stats, fmt.Errorf("%w: log ends before %d, export starts at %d", ErrIndexGap, next, er.FirstIndex())
	}

	if err := log.Flush(); err != nil {
		return stats, err
	}
	return stats, nil
}
