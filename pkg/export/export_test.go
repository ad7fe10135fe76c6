package export

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-wal/pkg/wal"
)

func openLog(t *testing.T, name string) *wal.LogFile {
	t.Helper()
	l, err := wal.Open(filepath.Join(t.TempDir(), name), wal.Options{SyncMode: wal.SyncNone})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func fill(t *testing.T, l *wal.LogFile, first uint64, n int) {
	t.Helper()
	require.NoError(t, l.Restart(first))
	for i := 0; i < n; i++ {
		require.NoError(t, l.Write([]byte(fmt.Sprintf("rec-%d", first+uint64(i)))))
	}
}

func entries(t *testing.T, l *wal.LogFile) []string {
	t.Helper()
	it, err := l.Iter(wal.All())
	require.NoError(t, err)
	defer it.Close()
	var out []string
	for it.Next() {
		out = append(out, string(it.Value()))
	}
	require.NoError(t, it.Err())
	return out
}

func TestDumpLoad_RoundTrip(t *testing.T) {
	src := openLog(t, "src.wal")
	fill(t, src, 100, 10)

	var buf bytes.Buffer
	stats, err := Dump(src, wal.Between(103, 108), &buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(103), stats.FirstIndex)
	assert.Equal(t, uint64(5), stats.Records)

	dst := openLog(t, "dst.wal")
	loaded, err := Load(&buf, dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), loaded.Records)

	assert.Equal(t, uint64(103), dst.FirstIndex())
	assert.Equal(t, []string{"rec-103", "rec-104", "rec-105", "rec-106", "rec-107"}, entries(t, dst))
}

func TestLoad_SkipsPresentRecords(t *testing.T) {
	src := openLog(t, "src.wal")
	fill(t, src, 0, 6)
	var buf bytes.Buffer
	_, err := Dump(src, wal.All(), &buf)
	require.NoError(t, err)

	dst := openLog(t, "dst.wal")
	fill(t, dst, 0, 4)

	stats, err := Load(&buf, dst)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), stats.Skipped)
	assert.Equal(t, uint64(2), stats.Records)
	assert.Equal(t, uint64(6), dst.Len())
	assert.Equal(t, "rec-5", entries(t, dst)[5])
}

func TestLoad_Gap(t *testing.T) {
	src := openLog(t, "src.wal")
	fill(t, src, 10, 3)
	var buf bytes.Buffer
	_, err := Dump(src, wal.All(), &buf)
	require.NoError(t, err)

	dst := openLog(t, "dst.wal")
	fill(t, dst, 0, 2)

	_, err = Load(&buf, dst)
	assert.ErrorIs(t, err, ErrIndexGap)
	assert.Equal(t, uint64(2), dst.Len(), "nothing appended across a gap")
}

func TestLoad_EmptyExportPastEnd(t *testing.T) {
	src := openLog(t, "src.wal")
	fill(t, src, 50, 0)
	var buf bytes.Buffer
	_, err := Dump(src, wal.All(), &buf)
	require.NoError(t, err)

	dst := openLog(t, "dst.wal")
	fill(t, dst, 0, 1)
	_, err = Load(&buf, dst)
	assert.ErrorIs(t, err, ErrIndexGap)
}

// rawStream returns the uncompressed bytes of an export stream.
func rawStream(t *testing.T, stream []byte) []byte {
	t.Helper()
	raw, err := io.ReadAll(snappy.NewReader(bytes.NewReader(stream)))
	require.NoError(t, err)
	return raw
}

func compress(t *testing.T, raw []byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	sw := snappy.NewBufferedWriter(&buf)
	_, err := sw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, sw.Close())
	return &buf
}

func TestReader_DetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, 0)
	require.NoError(t, err)
	require.NoError(t, w.Append(0, []byte("hello")))
	require.NoError(t, w.Append(1, []byte("world")))
	require.NoError(t, w.Close())

	raw := rawStream(t, buf.Bytes())
	// Header is 13 bytes, then index and length: the first payload starts at 29.
	raw[29] ^= 0xff

	r, err := NewReader(compress(t, raw))
	require.NoError(t, err)
	assert.False(t, r.Next())
	assert.ErrorIs(t, r.Err(), ErrBadChecksum)
	assert.False(t, r.Next(), "reader stays stopped after an error")
}

func TestWriter_RejectsGap(t *testing.T) {
	w, err := NewWriter(&bytes.Buffer{}, 5)
	require.NoError(t, err)
	require.NoError(t, w.Append(5, nil))
	assert.ErrorIs(t, w.Append(7, nil), ErrIndexGap)
}

func TestReader_BadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("definitely not snappy")))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReader_Truncated(t *testing.T) {
	src := openLog(t, "src.wal")
	fill(t, src, 0, 3)
	var buf bytes.Buffer
	_, err := Dump(src, wal.All(), &buf)
	require.NoError(t, err)

	raw := rawStream(t, buf.Bytes())
	r, err := NewReader(compress(t, raw[:len(raw)-2]))
	require.NoError(t, err)

	assert.True(t, r.Next())
	assert.True(t, r.Next())
	assert.False(t, r.Next())
	assert.ErrorIs(t, r.Err(), io.ErrUnexpectedEOF)
}
