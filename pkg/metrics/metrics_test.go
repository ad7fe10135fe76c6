package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func histogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.AppendsTotal == nil || r.CompactionsTotal == nil || r.RetainedEntries == nil {
		t.Fatal("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Fatal("Prometheus registry not initialized")
	}

	// Two registries must not collide on registration.
	_ = NewRegistry()
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordAppend(t *testing.T) {
	r := NewRegistry()

	r.RecordAppend(4, time.Millisecond, nil)
	r.RecordAppend(6, time.Millisecond, nil)
	r.RecordAppend(100, time.Millisecond, errors.New("disk full"))

	if got := counterValue(t, r.AppendsTotal.WithLabelValues(StatusOK)); got != 2 {
		t.Errorf("ok appends = %v, want 2", got)
	}
	if got := counterValue(t, r.AppendsTotal.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("failed appends = %v, want 1", got)
	}
	if got := counterValue(t, r.AppendedBytesTotal); got != 10 {
		t.Errorf("appended bytes = %v, want 10", got)
	}
	if got := histogramCount(t, r.AppendDuration); got != 2 {
		t.Errorf("append duration samples = %v, want 2", got)
	}
}

func TestRecordRead(t *testing.T) {
	r := NewRegistry()

	r.RecordRead(5, false, nil)
	r.RecordRead(7, true, errors.New("bad checksum"))
	r.RecordRead(0, false, errors.New("eof"))

	for label, want := range map[string]float64{StatusOK: 1, StatusBadChecksum: 1, StatusError: 1} {
		if got := counterValue(t, r.ReadsTotal.WithLabelValues(label)); got != want {
			t.Errorf("reads{%s} = %v, want %v", label, got, want)
		}
	}
	if got := counterValue(t, r.ReadBytesTotal); got != 5 {
		t.Errorf("read bytes = %v, want 5", got)
	}
}

func TestRecordCompactionAndRecovery(t *testing.T) {
	r := NewRegistry()

	r.RecordCompaction(4, 10*time.Millisecond, nil)
	r.RecordCompaction(0, time.Millisecond, errors.New("rename failed"))
	r.RecordRecovery(8, 12, 2*time.Millisecond)
	r.UpdateLogState(4, 4, 256)

	if got := counterValue(t, r.CompactedEntriesTotal); got != 4 {
		t.Errorf("compacted entries = %v, want 4", got)
	}
	if got := counterValue(t, r.CompactionsTotal.WithLabelValues(StatusError)); got != 1 {
		t.Errorf("failed compactions = %v, want 1", got)
	}
	if got := gaugeValue(t, r.RecoveredEntries); got != 8 {
		t.Errorf("recovered entries = %v, want 8", got)
	}
	if got := counterValue(t, r.TornTailBytesTotal); got != 12 {
		t.Errorf("torn tail bytes = %v, want 12", got)
	}
	if got := gaugeValue(t, r.FileSizeBytes); got != 256 {
		t.Errorf("file size = %v, want 256", got)
	}
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordRestart(nil)
	r.RecordArchive("dir", 512, nil)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("Failed to scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}

	for _, want := range []string{
		`wal_restarts_total{status="ok"} 1`,
		`wal_archived_segments_total{backend="dir",status="ok"} 1`,
		`wal_archived_bytes_total 512`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}
