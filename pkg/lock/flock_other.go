//go:build !unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// FileLocker falls back to an exclusively created "<path>.lock" file on
// platforms without flock. A crashed holder leaves the file behind and it
// must be removed by hand.
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
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("create lock file %s: %w", lockPath, err)
	}
	return &fileLock{file: f, path: lockPath}, nil
}

type fileLock struct {
	file *os.File
	path string
	once sync.Once
	err  error
}

func (l *fileLock) Unlock() error {
	l.once.Do(func() {
		closeErr := l.file.Close()
		removeErr := os.Remove(l.path)
		l.err = errors.Join(closeErr, removeErr)
	})
	return l.err
}
