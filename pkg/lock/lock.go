package lock

import (
	"errors"
	"sync"
)

// ErrLocked is returned when the path is already locked by another holder.
var ErrLocked = errors.New("path is already locked")

// LockSuffix is appended to a path to form the name of its sidecar lock file.
const LockSuffix = ".lock"

// Lock is a held exclusive lock. Unlock releases it; calling Unlock more than
// once is a no-op.
type Lock interface {
	Unlock() error
}

// Locker acquires exclusive locks on paths.
type Locker interface {
	// Acquire takes an exclusive lock on path without blocking.
	// Returns ErrLocked if the path is already held.
	Acquire(path string) (Lock, error)
}

// MemLocker is an in-process Locker backed by a map. The zero value is ready
// to use.
type MemLocker struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewMemLocker creates an empty in-memory locker.
func NewMemLocker() *MemLocker {
	return &MemLocker{paths: make(map[string]struct{})}
}

// Acquire implements Locker.
func (m *MemLocker) Acquire(path string) (Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.paths == nil {
		m.paths = make(map[string]struct{})
	}
	if _, held := m.paths[path]; held {
		return nil, ErrLocked
	}
	m.paths[path] = struct{}{}
	return &memLock{owner: m, path: path}, nil
}

// Held reports whether path is currently locked.
func (m *MemLocker) Held(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.paths[path]
	return held
}

type memLock struct {
	owner *MemLocker
	path  string
	once  sync.Once
}

func (l *memLock) Unlock() error {
	l.once.Do(func() {
		l.owner.mu.Lock()
		delete(l.owner.paths, l.path)
		l.owner.mu.Unlock()
	})
	return nil
}

var (
	_ Locker = (*MemLocker)(nil)
	_ Locker = FileLocker{}
)
