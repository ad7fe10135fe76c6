package wal

import (
	"io"
	"time"

	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
)

// scanResult is the outcome of a structural scan over a log image.
type scanResult struct {
	first   uint64
	entries uint64
	end     int64 // offset just past the last complete entry
}

// scanEntries walks the entry chain of a log image of the given size. It
// stops without error at the first entry that does not fit, which is how an
// interrupted append looks on disk. visit, if non-nil, is called with the
// offset and payload length of each complete entry.
func scanEntries(r io.ReaderAt, size int64, visit func(pos int64, length uint64) error) (scanResult, error) {
	first, err := readUint64At(r, 0)
	if err != nil {
		return scanResult{}, err
	}

	res := scanResult{first: first, end: HeaderSize}
	for size-res.end > LengthSize {
		length, err := readUint64At(r, res.end)
		if err != nil {
			return scanResult{}, err
		}
		next, ok := entryEnd(res.end, length, size)
		if !ok {
			break
		}
		if visit != nil {
			if err := visit(res.end, length); err != nil {
				return scanResult{}, err
			}
		}
		res.entries++
		res.end = next
	}
	return res, nil
}

// recover loads first index and length from the file and truncates any
// interrupted trailing write.
func (l *LogFile) recover() error {
	start := time.Now()

	info, err := l.f.Stat()
	if err != nil {
		return l.opError("recover", err)
	}
	size := info.Size()

	if size < HeaderSize {
		if err := l.writeHeader(0); err != nil {
			return l.opError("recover", err)
		}
		l.first, l.length, l.size = 0, 0, HeaderSize
		l.updateState()
		l.logger.Info("log created", logging.FirstIndex(0))
		return nil
	}

	res, err := scanEntries(l.f, size, nil)
	if err != nil {
		return l.opError("recover", err)
	}

	torn := size - res.end
	if torn > 0 {
		if err := l.f.Truncate(res.end); err != nil {
			return l.opError("recover", err)
		}
		if err := l.f.Sync(); err != nil {
			return l.opError("recover", err)
		}
		l.logger.Warn("discarded interrupted write", logging.Offset(res.end), logging.Bytes(torn))
	}

	l.first, l.length, l.size = res.first, res.entries, res.end

	elapsed := time.Since(start)
	l.record(func(m *metrics.Registry) {
		m.RecordRecovery(res.entries, torn, elapsed)
		m.UpdateLogState(l.first, l.length, l.size)
	})
	l.logger.Info("log opened",
		logging.FirstIndex(l.first),
		logging.Entries(l.length),
		logging.Bytes(l.size),
		logging.Latency(elapsed),
	)
	return nil
}
