package wal

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
)

// Compact discards every entry before newFirstIndex. newFirstIndex must lie
// in [FirstIndex(), FirstIndex()+Len()]; the upper end leaves an empty log
// whose next write gets newFirstIndex.
//
// The retained entries are copied unchanged into a temporary file next to
// the log, which is then renamed over it. A crash at any point leaves
// either the old file or the compacted one in place.
//
// Compaction only excludes writers that take the log's lock.
func (l *LogFile) Compact(newFirstIndex uint64) error {
	if err := l.ready("compact"); err != nil {
		return err
	}
	if l.broken {
		return l.opError("compact", ErrNeedsRecovery)
	}
	if newFirstIndex < l.first || newFirstIndex > l.first+l.length {
		return l.indexError("compact", newFirstIndex, ErrOutOfBounds)
	}

	timer := logging.StartTimer(l.logger, "compaction", logging.FirstIndex(newFirstIndex))
	discarded := newFirstIndex - l.first

	err := l.compact(newFirstIndex)
	l.record(func(m *metrics.Registry) { m.RecordCompaction(discarded, timer.Elapsed(), err) })
	if err != nil {
		timer.EndError(err)
		return l.indexError("compact", newFirstIndex, err)
	}

	l.updateState()
	timer.End(logging.Entries(l.length), logging.Bytes(l.size))
	return nil
}

func (l *LogFile) compact(newFirstIndex uint64) error {
	if err := l.f.Sync(); err != nil {
		return err
	}

	// Find the byte offset of newFirstIndex.
	cur, err := l.Seek(newFirstIndex)
	if err != nil {
		return err
	}
	pos, err := l.f.Seek(0, io.SeekCurrent)
	cur.Release()
	if err != nil {
		return err
	}

	tmpPath := compactTempPath(l.path)
	tmp, err := l.opts.openFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, l.opts.FileMode)
	if err != nil {
		return err
	}
	abandon := func(cause error) error {
		closeErr := tmp.Close()
		removeErr := os.Remove(tmpPath)
		if errors.Is(removeErr, os.ErrNotExist) {
			removeErr = nil
		}
		return errors.Join(cause, closeErr, removeErr)
	}

	head := encodeUint64(newFirstIndex)
	if _, err := tmp.Write(head[:]); err != nil {
		return abandon(err)
	}
	retained := l.size - pos
	if _, err := io.Copy(tmp, io.NewSectionReader(l.f, pos, retained)); err != nil {
		return abandon(err)
	}
	if err := tmp.Sync(); err != nil {
		return abandon(err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		return abandon(err)
	}
	if err := syncDir(filepath.Dir(l.path)); err != nil {
		l.logger.Warn("directory sync after compaction failed", logging.Error(err))
	}

	// The old handle now refers to an unlinked inode.
	if err := l.f.Close(); err != nil {
		l.logger.Warn("closing replaced log file failed", logging.Error(err))
	}
	l.f = tmp
	l.length -= newFirstIndex - l.first
	l.first = newFirstIndex
	l.size = HeaderSize + retained
	return nil
}
