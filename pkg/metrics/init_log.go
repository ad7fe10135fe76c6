package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Latency buckets sized for fsync-bound operations.
var syncBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0}

func (r *Registry) initAppendMetrics() {
	r.AppendsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "appends_total",
			Help:      "Total number of append attempts",
		},
		[]string{"status"},
	)

	r.AppendedBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "appended_bytes_total",
			Help:      "Payload bytes durably appended",
		},
	)

	r.AppendDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "append_duration_seconds",
			Help:      "Append duration including both sync phases",
			Buckets:   syncBuckets,
		},
	)

	r.AppendRepairsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "append_repairs_total",
			Help:      "Truncations performed after a failed append",
		},
		[]string{"status"},
	)

	r.FlushesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "flushes_total",
			Help:      "Explicit flush calls",
		},
		[]string{"status"},
	)
}

func (r *Registry) initReadMetrics() {
	r.ReadsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reads_total",
			Help:      "Entries decoded through a cursor",
		},
		[]string{"status"},
	)

	r.ReadBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "read_bytes_total",
			Help:      "Payload bytes streamed to readers",
		},
	)
}

func (r *Registry) initMaintenanceMetrics() {
	r.CompactionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compactions_total",
			Help:      "Total number of compactions",
		},
		[]string{"status"},
	)

	r.CompactionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "compaction_duration_seconds",
			Help:      "Compaction duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	r.CompactedEntriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "compacted_entries_total",
			Help:      "Entries discarded by compaction",
		},
	)

	r.RestartsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "restarts_total",
			Help:      "Total number of restarts",
		},
		[]string{"status"},
	)

	r.RecoveryDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "recovery_duration_seconds",
			Help:      "Time spent scanning the log on open",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	r.RecoveredEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "recovered_entries",
			Help:      "Complete entries found by the last recovery scan",
		},
	)

	r.TornTailBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "torn_tail_bytes_total",
			Help:      "Bytes of interrupted writes discarded during recovery",
		},
	)
}

func (r *Registry) initStateMetrics() {
	r.RetainedEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "retained_entries",
			Help:      "Entries currently retained in the log",
		},
	)

	r.FirstIndex = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "first_index",
			Help:      "Index of the oldest retained entry",
		},
	)

	r.FileSizeBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "file_size_bytes",
			Help:      "Size of the log file in bytes",
		},
	)
}

func (r *Registry) initArchiveMetrics() {
	r.ArchivedSegmentsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "archived_segments_total",
			Help:      "Exports uploaded to an archive store",
		},
		[]string{"backend", "status"},
	)

	r.ArchivedBytesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "archived_bytes_total",
			Help:      "Compressed bytes uploaded to archive stores",
		},
	)
}
