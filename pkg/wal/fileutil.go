package wal

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// file is the subset of *os.File the log needs. Tests substitute a wrapper
// that injects failures.
type file interface {
	io.Reader
	io.Writer
	io.Seeker
	io.ReaderAt
	Stat() (os.FileInfo, error)
	Sync() error
	Truncate(size int64) error
	Close() error
}

type openFileFunc func(name string, flag int, perm os.FileMode) (file, error)

func osOpenFile(name string, flag int, perm os.FileMode) (file, error) {
	f, err := os.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// compactTempPath returns a fresh hidden path next to the log so that the
// final rename stays on one filesystem.
func compactTempPath(path string) string {
	dir, base := filepath.Split(path)
	return filepath.Join(dir, "."+base+".compact-"+uuid.NewString())
}

// syncDir fsyncs a directory so a rename inside it is durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// FileSize returns the size of a file in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
