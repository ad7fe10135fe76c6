package wal

import (
	"errors"
	"io"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-wal/pkg/lock"
	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
)

// LogFile is an open write-ahead log backed by a single file.
type LogFile struct {
	path   string
	f      file
	lock   lock.Lock
	opts   Options
	logger logging.Logger

	first  uint64
	length uint64
	size   int64 // end of the last complete entry

	// checkedOut is set while a cursor is out; gen identifies that cursor.
	checkedOut atomic.Bool
	gen        uint64

	readBuf []byte
	broken  bool
	closed  bool
}

// Open opens the log at path, creating it if it does not exist, and runs
// recovery. A file shorter than the header is initialized as an empty log
// starting at index 0.
func Open(path string, opts ...Options) (*LogFile, error) {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	o = o.withDefaults()

	held, err := o.Locker.Acquire(path)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			err = ErrAlreadyLocked
		}
		return nil, &LogError{Op: "open", Path: path, Cause: err}
	}

	f, err := o.openFile(path, os.O_RDWR|os.O_CREATE, o.FileMode)
	if err != nil {
		held.Unlock()
		return nil, &LogError{Op: "open", Path: path, Cause: err}
	}

	l := &LogFile{
		path:    path,
		f:       f,
		lock:    held,
		opts:    o,
		logger:  o.Logger.With(logging.Component("wal"), logging.Path(path)),
		readBuf: make([]byte, o.ReadBufferSize),
	}

	if err := l.recover(); err != nil {
		f.Close()
		held.Unlock()
		return nil, err
	}
	return l, nil
}

// Path returns the path of the backing file.
func (l *LogFile) Path() string { return l.path }

// FirstIndex returns the index of the oldest retained entry. On an empty log
// it is the index the next write will receive.
func (l *LogFile) FirstIndex() uint64 { return l.first }

// LastIndex returns the index of the newest entry. The result is meaningless
// when Len is 0; check Len first.
func (l *LogFile) LastIndex() uint64 { return l.first + l.length - 1 }

// Len returns the number of retained entries.
func (l *LogFile) Len() uint64 { return l.length }

// Size returns the byte length of the header plus all complete entries.
func (l *LogFile) Size() int64 { return l.size }

// ready rejects operations on a closed log or while a cursor is out.
func (l *LogFile) ready(op string) error {
	if l.closed {
		return l.opError(op, ErrClosed)
	}
	if l.checkedOut.Load() {
		return l.opError(op, ErrCursorActive)
	}
	return nil
}

func (l *LogFile) record(fn func(*metrics.Registry)) {
	if l.opts.Metrics != nil {
		fn(l.opts.Metrics)
	}
}

func (l *LogFile) updateState() {
	l.record(func(m *metrics.Registry) { m.UpdateLogState(l.first, l.length, l.size) })
}

// syncAppend is the per-phase sync of an append.
func (l *LogFile) syncAppend() error {
	if l.opts.SyncMode == SyncNone {
		return nil
	}
	return l.f.Sync()
}

// Write appends payload as a new entry with index FirstIndex()+Len().
// The entry is durable when Write returns nil under SyncAlways.
//
// If either write phase fails the file is truncated back to its previous
// end. If that truncation also fails, both errors are returned joined and
// further writes fail with ErrNeedsRecovery.
func (l *LogFile) Write(payload []byte) error {
	if err := l.ready("write"); err != nil {
		return err
	}
	if l.broken {
		return l.opError("write", ErrNeedsRecovery)
	}
	index := l.first + l.length
	if index == math.MaxUint64 {
		return l.indexError("write", index, errors.New("index space exhausted, restart the log"))
	}

	start := time.Now()
	end, err := l.f.Seek(0, io.SeekEnd)
	if err != nil {
		return l.indexError("write", index, err)
	}

	if err := l.appendEntry(payload); err != nil {
		writeErr := l.indexError("write", index, err)
		l.record(func(m *metrics.Registry) { m.RecordAppend(len(payload), time.Since(start), err) })

		repairErr := l.f.Truncate(end)
		l.record(func(m *metrics.Registry) { m.RecordAppendRepair(repairErr) })
		if repairErr != nil {
			l.broken = true
			l.logger.Error("append repair failed", logging.Index(index), logging.Offset(end),
				logging.Error(repairErr))
			return errors.Join(writeErr, l.opError("repair", repairErr))
		}
		l.logger.Error("append failed, tail truncated", logging.Index(index), logging.Offset(end),
			logging.Error(err))
		return writeErr
	}

	l.length++
	l.size = end + EntryOverhead + int64(len(payload))

	l.record(func(m *metrics.Registry) {
		m.RecordAppend(len(payload), time.Since(start), nil)
		m.UpdateLogState(l.first, l.length, l.size)
	})
	l.logger.Debug("entry appended", logging.Index(index), logging.Bytes(int64(len(payload))))
	return nil
}

// appendEntry writes one entry at the current position using the two-phase
// protocol: length and payload, sync, then checksum, sync.
func (l *LogFile) appendEntry(payload []byte) error {
	head := encodeUint64(uint64(len(payload)))
	if _, err := l.f.Write(head[:]); err != nil {
		return err
	}
	if _, err := l.f.Write(payload); err != nil {
		return err
	}
	if err := l.syncAppend(); err != nil {
		return err
	}

	sum := encodeUint32(Checksum(payload))
	if _, err := l.f.Write(sum[:]); err != nil {
		return err
	}
	return l.syncAppend()
}

// Flush fsyncs the log file. It syncs even under SyncNone.
func (l *LogFile) Flush() error {
	if err := l.ready("flush"); err != nil {
		return err
	}
	err := l.f.Sync()
	l.record(func(m *metrics.Registry) { m.RecordFlush(err) })
	if err != nil {
		return l.opError("flush", err)
	}
	return nil
}

// Restart discards every entry and makes startingIndex the index of the
// next write. The change is synced before Restart returns.
func (l *LogFile) Restart(startingIndex uint64) error {
	if err := l.ready("restart"); err != nil {
		return err
	}

	err := l.writeHeader(startingIndex)
	l.record(func(m *metrics.Registry) { m.RecordRestart(err) })
	if err != nil {
		return l.indexError("restart", startingIndex, err)
	}

	dropped := l.length
	l.first, l.length, l.size = startingIndex, 0, HeaderSize
	l.broken = false
	l.updateState()
	l.logger.Info("log restarted", logging.FirstIndex(startingIndex), logging.Entries(dropped))
	return nil
}

// writeHeader resets the file to a bare header holding first.
func (l *LogFile) writeHeader(first uint64) error {
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	head := encodeUint64(first)
	if _, err := l.f.Write(head[:]); err != nil {
		return err
	}
	if err := l.f.Truncate(HeaderSize); err != nil {
		return err
	}
	return l.f.Sync()
}

// Close syncs and closes the file and releases the lock. Any checked-out
// cursor becomes unusable. Closing twice is a no-op.
func (l *LogFile) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true
	l.checkedOut.Store(false)
	l.gen++

	syncErr := l.f.Sync()
	closeErr := l.f.Close()
	unlockErr := l.lock.Unlock()
	if err := errors.Join(syncErr, closeErr, unlockErr); err != nil {
		return l.opError("close", err)
	}
	l.logger.Debug("log closed", logging.FirstIndex(l.first), logging.Entries(l.length))
	return nil
}
