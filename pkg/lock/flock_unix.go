//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// FileLocker takes flock(2) locks on a sidecar "<path>.lock" file. The lock
// lives on the sidecar rather than the data file so that it stays valid when
// the data file is atomically replaced by a rename.
//
// flock locks belong to the open file description, so two Acquire calls for
// the same path conflict even inside one process.
type FileLocker struct {
	// Mode is the permission used when creating the lock file. Zero means 0644.
	Mode os.FileMode
}

// Acquire implements Locker.
func (fl FileLocker) Acquire(path string) (Lock, error) {
	mode := fl.Mode
	if mode == 0 {
		mode = 0644
	}

	lockPath := path + LockSuffix
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, mode)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("flock %s: %w", lockPath, err)
	}

	return &fileLock{file: f}, nil
}

type fileLock struct {
	file *os.File
	once sync.Once
	err  error
}

// Unlock drops the flock and closes the descriptor. The lock file itself is
// left in place: removing it would let a waiter lock an unlinked inode while
// a newcomer locks a fresh one.
func (l *fileLock) Unlock() error {
	l.once.Do(func() {
		unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
		closeErr := l.file.Close()
		l.err = errors.Join(unlockErr, closeErr)
	})
	return l.err
}
