// Package archive stores log exports outside the log and ties archiving to
// compaction.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/dd0wney/cluso-wal/pkg/export"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("archive object not found")

// Store is a flat key/value object store. Keys use '/' separators.
type Store interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Put(ctx context.Context, key string, body io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Segment describes one archived export.
type Segment struct {
	Key        string
	FirstIndex uint64
	LastIndex  uint64
	Records    uint64
	Size       int64
}

// SegmentKey builds the key for an export of [first, last]. Indices are
// zero-padded so that lexical order is index order.
func SegmentKey(prefix string, first, last uint64, id string) string {
	name := fmt.Sprintf("%020d-%020d-%s%s", first, last, id, export.FileExt)
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}

// ParseSegmentKey extracts the index range from a key made by SegmentKey.
func ParseSegmentKey(key string) (first, last uint64, err error) {
	base := strings.TrimSuffix(path.Base(key), export.FileExt)
	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 || !strings.HasSuffix(key, export.FileExt) {
		return 0, 0, fmt.Errorf("not a segment key: %q", key)
	}
	if first, err = strconv.ParseUint(parts[0], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("not a segment key: %q: %w", key, err)
	}
	if last, err = strconv.ParseUint(parts[1], 10, 64); err != nil {
		return 0, 0, fmt.Errorf("not a segment key: %q: %w", key, err)
	}
	return first, last, nil
}

// ListSegments returns the segments under prefix ordered by first index.
// Keys that are not segment keys are ignored.
func ListSegments(ctx context.Context, store Store, prefix string) ([]Segment, error) {
	keys, err := store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}

	var segments []Segment
	for _, key := range keys {
		first, last, err := ParseSegmentKey(key)
		if err != nil {
			continue
		}
		segments = append(segments, Segment{Key: key, FirstIndex: first, LastIndex: last, Records: last - first + 1})
	}
	sort.Slice(segments, func(i, j int) bool { return segments[i].FirstIndex < segments[j].FirstIndex })
	return segments, nil
}
