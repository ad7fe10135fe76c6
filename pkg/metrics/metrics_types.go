package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "wal"

// Status label values shared by the Record helpers.
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusBadChecksum = "bad_checksum"
)

// Registry holds all metrics for a process using the log
type Registry struct {
	// Append Metrics
	AppendsTotal       *prometheus.CounterVec
	AppendedBytesTotal prometheus.Counter
	AppendDuration     prometheus.Histogram
	AppendRepairsTotal *prometheus.CounterVec
	FlushesTotal       *prometheus.CounterVec

	// Read Metrics
	ReadsTotal     *prometheus.CounterVec
	ReadBytesTotal prometheus.Counter

	// Maintenance Metrics
	CompactionsTotal      *prometheus.CounterVec
	CompactionDuration    prometheus.Histogram
	CompactedEntriesTotal prometheus.Counter
	RestartsTotal         *prometheus.CounterVec
	RecoveryDuration      prometheus.Histogram
	RecoveredEntries      prometheus.Gauge
	TornTailBytesTotal    prometheus.Counter

	// State Gauges
	RetainedEntries prometheus.Gauge
	FirstIndex      prometheus.Gauge
	FileSizeBytes   prometheus.Gauge

	// Archive Metrics
	ArchivedSegmentsTotal *prometheus.CounterVec
	ArchivedBytesTotal    prometheus.Counter

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initAppendMetrics()
	r.initReadMetrics()
	r.initMaintenanceMetrics()
	r.initStateMetrics()
	r.initArchiveMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
