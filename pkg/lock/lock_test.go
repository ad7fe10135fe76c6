package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemLocker_Exclusive(t *testing.T) {
	locker := NewMemLocker()

	l1, err := locker.Acquire("a.wal")
	require.NoError(t, err)
	assert.True(t, locker.Held("a.wal"))

	_, err = locker.Acquire("a.wal")
	assert.ErrorIs(t, err, ErrLocked, "second acquire on the same path must fail")

	// A different path is independent.
	l2, err := locker.Acquire("b.wal")
	require.NoError(t, err)
	require.NoError(t, l2.Unlock())

	require.NoError(t, l1.Unlock())
	assert.False(t, locker.Held("a.wal"))

	l3, err := locker.Acquire("a.wal")
	require.NoError(t, err, "path should be lockable again after unlock")
	require.NoError(t, l3.Unlock())
}

func TestMemLocker_ZeroValue(t *testing.T) {
	var locker MemLocker
	l, err := locker.Acquire("x")
	require.NoError(t, err)
	require.NoError(t, l.Unlock())
	// Double unlock is a no-op.
	require.NoError(t, l.Unlock())
}

func TestFileLocker_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.wal")
	locker := FileLocker{}

	l1, err := locker.Acquire(path)
	require.NoError(t, err)

	_, err = os.Stat(path + LockSuffix)
	require.NoError(t, err, "sidecar lock file should exist")

	_, err = locker.Acquire(path)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l1.Unlock())
	require.NoError(t, l1.Unlock())

	l2, err := locker.Acquire(path)
	require.NoError(t, err, "lock should be free after unlock")
	require.NoError(t, l2.Unlock())
}

func TestFileLocker_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "log.wal")
	_, err := FileLocker{}.Acquire(path)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}
