package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordAppend records one append attempt.
func (r *Registry) RecordAppend(payloadBytes int, duration time.Duration, err error) {
	r.AppendsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	r.AppendedBytesTotal.Add(float64(payloadBytes))
	r.AppendDuration.Observe(duration.Seconds())
}

// RecordAppendRepair records the truncation that follows a failed append.
func (r *Registry) RecordAppendRepair(err error) {
	r.AppendRepairsTotal.WithLabelValues(status(err)).Inc()
}

// RecordFlush records an explicit flush.
func (r *Registry) RecordFlush(err error) {
	r.FlushesTotal.WithLabelValues(status(err)).Inc()
}

// RecordRead records one decoded entry. badChecksum takes precedence over err.
func (r *Registry) RecordRead(payloadBytes int64, badChecksum bool, err error) {
	switch {
	case badChecksum:
		r.ReadsTotal.WithLabelValues(StatusBadChecksum).Inc()
	case err != nil:
		r.ReadsTotal.WithLabelValues(StatusError).Inc()
	default:
		r.ReadsTotal.WithLabelValues(StatusOK).Inc()
		r.ReadBytesTotal.Add(float64(payloadBytes))
	}
}

// RecordCompaction records a compaction that discarded the given number of entries.
func (r *Registry) RecordCompaction(discarded uint64, duration time.Duration, err error) {
	r.CompactionsTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	r.CompactionDuration.Observe(duration.Seconds())
	r.CompactedEntriesTotal.Add(float64(discarded))
}

// RecordRestart records a restart.
func (r *Registry) RecordRestart(err error) {
	r.RestartsTotal.WithLabelValues(status(err)).Inc()
}

// RecordRecovery records the outcome of an open-time recovery scan.
func (r *Registry) RecordRecovery(entries uint64, tornBytes int64, duration time.Duration) {
	r.RecoveryDuration.Observe(duration.Seconds())
	r.RecoveredEntries.Set(float64(entries))
	if tornBytes > 0 {
		r.TornTailBytesTotal.Add(float64(tornBytes))
	}
}

// UpdateLogState sets the state gauges.
func (r *Registry) UpdateLogState(firstIndex, entries uint64, fileSize int64) {
	r.FirstIndex.Set(float64(firstIndex))
	r.RetainedEntries.Set(float64(entries))
	r.FileSizeBytes.Set(float64(fileSize))
}

// RecordArchive records an upload to an archive backend.
func (r *Registry) RecordArchive(backend string, bytes int64, err error) {
	r.ArchivedSegmentsTotal.WithLabelValues(backend, status(err)).Inc()
	if err == nil {
		r.ArchivedBytesTotal.Add(float64(bytes))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
