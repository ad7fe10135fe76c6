package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-wal/pkg/export"
	"github.com/dd0wney/cluso-wal/pkg/logging"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

// ErrNothingToArchive is returned when the requested prefix is empty.
var ErrNothingToArchive = errors.New("nothing to archive")

// Source is a log whose prefix can be archived and then discarded.
type Source interface {
	wal.Reader
	wal.Compactor
}

// Archiver uploads log prefixes to a Store before compacting them away.
type Archiver struct {
	Store   Store
	Prefix  string
	Logger  logging.Logger
	Metrics *metrics.Registry
	// TempDir holds the staged export. Empty means os.TempDir.
	TempDir string
}

// ArchiveAndCompact archives [FirstIndex, upTo) of log to store and then
// compacts the log to upTo.
func ArchiveAndCompact(ctx context.Context, log Source, store Store, upTo uint64) (Segment, error) {
	a := &Archiver{Store: store}
	return a.ArchiveAndCompact(ctx, log, upTo)
}

// ArchiveAndCompact exports every entry before upTo, uploads the export and
// only then compacts. If the upload fails the log is left untouched, and if
// compaction fails the uploaded segment is still returned with the error.
func (a *Archiver) ArchiveAndCompact(ctx context.Context, log Source, upTo uint64) (Segment, error) {
	logger := a.Logger
	if logger == nil {
		logger = logging.NopLogger{}
	}

	first := log.FirstIndex()
	if upTo < first || upTo > first+log.Len() {
		return Segment{}, fmt.Errorf("archive up to %d: %w", upTo, wal.ErrOutOfBounds)
	}
	if upTo == first {
		return Segment{}, ErrNothingToArchive
	}

	timer := logging.StartTimer(logger, "archive",
		logging.String("backend", a.Store.Name()),
		logging.FirstIndex(first),
		logging.Index(upTo-1),
	)

	seg, err := a.upload(ctx, log, first, upTo)
	if a.Metrics != nil {
		a.Metrics.RecordArchive(a.Store.Name(), seg.Size, err)
	}
	if err != nil {
		timer.EndError(err)
		return Segment{}, err
	}
	timer.End(logging.String("key", seg.Key), logging.Bytes(seg.Size))

	if err := ctx.Err(); err != nil {
		return seg, err
	}
	if err := log.Compact(upTo); err != nil {
		logger.Error("compaction after archive failed", logging.String("key", seg.Key), logging.Error(err))
		return seg, err
	}
	return seg, nil
}

func (a *Archiver) upload(ctx context.Context, log Source, first, upTo uint64) (Segment, error) {
	staged, err := os.CreateTemp(a.TempDir, "wal-archive-*"+export.FileExt)
	if err != nil {
		return Segment{}, fmt.Errorf("failed to stage export: %w", err)
	}
	defer func() {
		staged.Close()
		os.Remove(staged.Name())
	}()

	stats, err := export.Dump(log, wal.Between(first, upTo), staged)
	if err != nil {
		return Segment{}, fmt.Errorf("failed to export entries: %w", err)
	}
	size, err := staged.Seek(0, io.SeekCurrent)
	if err != nil {
		return Segment{}, err
	}
	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		return Segment{}, err
	}

	key := SegmentKey(a.Prefix, first, upTo-1, uuid.NewString())
	if err := a.Store.Put(ctx, key, staged, size); err != nil {
		return Segment{Size: size}, err
	}

	return Segment{
		Key:        key,
		FirstIndex: first,
		LastIndex:  upTo - 1,
		Records:    stats.Records,
		Size:       size,
	}, nil
}

// Restore loads the segment stored under key into log.
func Restore(ctx context.Context, store Store, key string, log export.Target) (export.Stats, error) {
	body, err := store.Get(ctx, key)
	if err != nil {
		return export.Stats{}, err
	}
	defer body.Close()
	return export.Load(body, log)
}
