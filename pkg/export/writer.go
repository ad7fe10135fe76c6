package export

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-wal/pkg/wal"
)

// Writer encodes records into an export stream.
type Writer struct {
	sw    *snappy.Writer
	first uint64
	next  uint64
	count uint64
	bytes int64
}

// NewWriter writes the stream header. Records appended afterwards must start
// at first and be contiguous.
func NewWriter(w io.Writer, first uint64) (*Writer, error) {
	sw := snappy.NewBufferedWriter(w)

	if _, err := io.WriteString(sw, Magic); err != nil {
		return nil, err
	}
	if err := binary.Write(sw, binary.LittleEndian, uint8(Version)); err != nil {
		return nil, err
	}
	if err := binary.Write(sw, binary.LittleEndian, first); err != nil {
		return nil, err
	}

	return &Writer{sw: sw, first: first, next: first}, nil
}

// Append writes one record.
func (w *Writer) Append(index uint64, payload []byte) error {
	if index != w.next {
		return fmt.Errorf("%w: expected index %d, got %d", ErrIndexGap, w.next, index)
	}

	if err := binary.Write(w.sw, binary.LittleEndian, index); err != nil {
		return err
	}
	if err := binary.Write(w.sw, binary.LittleEndian, uint64(len(payload))); err != nil {
		return err
	}
	if _, err := w.sw.Write(payload); err != nil {
		return err
	}
	if err := binary.Write(w.sw, binary.LittleEndian, wal.Checksum(payload)); err != nil {
		return err
	}

	w.next++
	w.count++
	w.bytes += int64(len(payload))
	return nil
}

// Count returns the number of records appended.
func (w *Writer) Count() uint64 { return w.count }

// Close flushes buffered data. It does not close the underlying writer.
func (w *Writer) Close() error {
	return w.sw.Close()
}
