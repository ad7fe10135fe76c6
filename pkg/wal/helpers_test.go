package wal

import (
	"bytes"
	"path/filepath"
	"testing"
)

func newTestLog(t *testing.T, opts ...Options) (*LogFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.wal")
	return reopenTestLog(t, path, opts...), path
}

func reopenTestLog(t *testing.T, path string, opts ...Options) *LogFile {
	t.Helper()
	l, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Failed to open log: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func writeAll(t *testing.T, l *LogFile, payloads ...[]byte) {
	t.Helper()
	for i, p := range payloads {
		if err := l.Write(p); err != nil {
			t.Fatalf("Failed to write entry %d: %v", i, err)
		}
	}
}

func writeStrings(t *testing.T, l *LogFile, payloads ...string) {
	t.Helper()
	for _, p := range payloads {
		writeAll(t, l, []byte(p))
	}
}

// collect drains an iterator over r and fails the test on any error.
func collect(t *testing.T, l *LogFile, r Range) []string {
	t.Helper()
	it, err := l.Iter(r)
	if err != nil {
		t.Fatalf("Failed to create iterator: %v", err)
	}
	defer it.Close()

	var out []string
	for it.Next() {
		out = append(out, string(it.Value()))
	}
	if err := it.Err(); err != nil {
		t.Fatalf("Iteration failed: %v", err)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertFree fails if the log still has a cursor checked out.
func assertFree(t *testing.T, l *LogFile) {
	t.Helper()
	cur, err := l.FirstEntry()
	if err != nil {
		t.Fatalf("Expected log to be free, got %v", err)
	}
	cur.Release()
}

var tabs200 = string(bytes.Repeat([]byte{0x09}, 200))
