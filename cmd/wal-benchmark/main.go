package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dd0wney/cluso-wal/pkg/export"
	"github.com/dd0wney/cluso-wal/pkg/metrics"
	"github.com/dd0wney/cluso-wal/pkg/wal"
)

func main() {
	numWrites := flag.Int("writes", 10000, "Number of write operations")
	dataDir := flag.String("dir", "./data/wal-benchmark", "Directory for benchmark logs")
	listen := flag.String("metrics-listen", "", "Serve Prometheus metrics on this address and wait for Ctrl-C")
	flag.Parse()

	reg := metrics.NewRegistry()
	if *listen != "" {
		srv := &http.Server{Addr: *listen, Handler: reg.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Metrics server failed: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	fmt.Printf("🔬 Write-Ahead Log Benchmark\n")
	fmt.Printf("============================\n\n")

	// Test 1: fsync per append phase
	fmt.Printf("📝 Testing SyncAlways...\n")
	syncStats := benchmarkWrites(filepath.Join(*dataDir, "sync-always.wal"), wal.SyncAlways, *numWrites, reg)
	printWriteStats(syncStats)

	// Test 2: no per-append fsync
	fmt.Printf("⚡ Testing SyncNone...\n")
	fastStats := benchmarkWrites(filepath.Join(*dataDir, "sync-none.wal"), wal.SyncNone, *numWrites, reg)
	printWriteStats(fastStats)

	// Test 3: reads, export and compaction on the SyncNone log
	fmt.Printf("📖 Testing Read, Export and Compaction...\n")
	maint := benchmarkMaintenance(filepath.Join(*dataDir, "sync-none.wal"), reg)
	fmt.Printf("   Read:        %d entries in %s (%.0f entries/sec)\n",
		maint.Reads, maint.ReadDuration, float64(maint.Reads)/maint.ReadDuration.Seconds())
	fmt.Printf("   Export:      %.2f MB in %s (%.1f%% of log)\n",
		maint.ExportSizeMB, maint.ExportDuration, maint.ExportSizeMB/fastStats.FileSizeMB*100)
	fmt.Printf("   Compaction:  dropped %d entries in %s\n", maint.Compacted, maint.CompactDuration)
	fmt.Printf("   Recovery:    reopened in %s\n\n", maint.OpenDuration)

	// Summary
	fmt.Printf("📊 Comparison\n")
	fmt.Printf("============================\n")
	fmt.Printf("SyncAlways:       %.0f ops/sec\n", float64(syncStats.Writes)/syncStats.Duration.Seconds())
	fmt.Printf("SyncNone:         %.0f ops/sec\n", float64(fastStats.Writes)/fastStats.Duration.Seconds())
	fmt.Printf("Durability Cost:  %.1fx slower\n", syncStats.Duration.Seconds()/fastStats.Duration.Seconds())

	if *listen != "" {
		fmt.Printf("\nServing metrics on %s/metrics, press Ctrl-C to exit\n", *listen)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		<-ctx.Done()
	}
}

type BenchmarkStats struct {
	Writes     int
	Duration   time.Duration
	FileSizeMB float64
}

type MaintenanceStats struct {
	Reads           uint64
	ReadDuration    time.Duration
	ExportSizeMB    float64
	ExportDuration  time.Duration
	Compacted       uint64
	CompactDuration time.Duration
	OpenDuration    time.Duration
}

func printWriteStats(s BenchmarkStats) {
	fmt.Printf("   Writes:      %d\n", s.Writes)
	fmt.Printf("   Duration:    %s\n", s.Duration)
	fmt.Printf("   File Size:   %.2f MB\n", s.FileSizeMB)
	fmt.Printf("   Write Rate:  %.0f ops/sec\n\n", float64(s.Writes)/s.Duration.Seconds())
}

// payload builds a realistic JSON record for entry i.
func payload(i int) []byte {
	record := map[string]interface{}{
		"id":   uint64(i),
		"name": fmt.Sprintf("Node_%d", i),
		"properties": map[string]interface{}{
			"age":      i % 100,
			"city":     "San Francisco",
			"country":  "USA",
			"active":   i%2 == 0,
			"score":    float64(i) * 1.5,
			"metadata": "This is some metadata that makes the entry larger and more realistic",
		},
		"labels": []string{"Person", "User"},
	}
	data, _ := json.Marshal(record)
	return data
}

func benchmarkWrites(path string, mode wal.SyncMode, numWrites int, reg *metrics.Registry) BenchmarkStats {
	// Clean up
	os.Remove(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	l, err := wal.Open(path, wal.Options{SyncMode: mode, Metrics: reg})
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}

	start := time.Now()
	for i := 0; i < numWrites; i++ {
		if err := l.Write(payload(i)); err != nil {
			log.Fatalf("Write %d failed: %v", i, err)
		}
	}
	if err := l.Flush(); err != nil {
		log.Fatalf("Flush failed: %v", err)
	}
	duration := time.Since(start)

	size := l.Size()
	l.Close()

	return BenchmarkStats{
		Writes:     numWrites,
		Duration:   duration,
		FileSizeMB: float64(size) / 1024 / 1024,
	}
}

func benchmarkMaintenance(path string, reg *metrics.Registry) MaintenanceStats {
	var stats MaintenanceStats

	start := time.Now()
	l, err := wal.Open(path, wal.Options{SyncMode: wal.SyncNone, Metrics: reg})
	if err != nil {
		log.Fatalf("Failed to open log: %v", err)
	}
	defer l.Close()
	stats.OpenDuration = time.Since(start)

	start = time.Now()
	it, err := l.Iter(wal.All())
	if err != nil {
		log.Fatalf("Failed to iterate: %v", err)
	}
	for it.Next() {
		stats.Reads++
	}
	if err := it.Err(); err != nil {
		log.Fatalf("Read failed: %v", err)
	}
	it.Close()
	stats.ReadDuration = time.Since(start)

	start = time.Now()
	counter := &countingWriter{}
	if _, err := export.Dump(l, wal.All(), counter); err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	stats.ExportDuration = time.Since(start)
	stats.ExportSizeMB = float64(counter.n) / 1024 / 1024

	first := l.FirstIndex()
	half := first + l.Len()/2
	start = time.Now()
	if err := l.Compact(half); err != nil {
		log.Fatalf("Compaction failed: %v", err)
	}
	stats.CompactDuration = time.Since(start)
	stats.Compacted = half - first

	return stats
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
