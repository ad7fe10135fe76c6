package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("Failed to decode log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" Info ", InfoLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLookupLevel_Unknown(t *testing.T) {
	if _, err := LookupLevel("verbose"); err == nil {
		t.Error("Expected error for unknown level")
	}
	if lvl, err := LookupLevel("WARN"); err != nil || lvl != WarnLevel {
		t.Errorf("LookupLevel(WARN) = %v, %v", lvl, err)
	}
}

func TestJSONLogger_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("dropped", Index(1))
	logger.Info("log opened", Path("/tmp/a.wal"), FirstIndex(5), Entries(3))
	logger.Warn("torn tail truncated", Offset(38), Bytes(12))
	logger.Error("append failed", Error(errors.New("disk full")))

	entries := decodeLines(t, &buf)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d: %s", len(entries), buf.String())
	}

	opened := entries[0]
	if opened.Level != "INFO" || opened.Message != "log opened" {
		t.Errorf("Unexpected first entry: %+v", opened)
	}
	// JSON numbers decode as float64.
	if opened.Fields["first_index"] != float64(5) || opened.Fields["entries"] != float64(3) {
		t.Errorf("Unexpected fields: %v", opened.Fields)
	}
	if opened.Fields["path"] != "/tmp/a.wal" {
		t.Errorf("path = %v", opened.Fields["path"])
	}

	if entries[1].Fields["offset"] != float64(38) {
		t.Errorf("offset = %v", entries[1].Fields["offset"])
	}
	if entries[2].Fields["error"] != "disk full" {
		t.Errorf("error = %v", entries[2].Fields["error"])
	}
}

func TestJSONLogger_NoFieldsOmitted(t *testing.T) {
	var buf bytes.Buffer
	NewJSONLogger(&buf, DebugLevel).Info("plain")

	if strings.Contains(buf.String(), `"fields"`) {
		t.Errorf("Expected fields to be omitted, got %s", buf.String())
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(Component("wal"), Path("a.wal"))

	child.Info("compacted", FirstIndex(7), Path("override.wal"))
	parent.Info("parent line")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["component"] != "wal" {
		t.Errorf("Child lost pre-set field: %v", entries[0].Fields)
	}
	if entries[0].Fields["path"] != "override.wal" {
		t.Errorf("Call-site field should win, got %v", entries[0].Fields["path"])
	}
	if entries[1].Fields != nil {
		t.Errorf("Parent should not inherit child fields: %v", entries[1].Fields)
	}
}

func TestJSONLogger_SharedLevel(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(Component("wal"))

	parent.SetLevel(ErrorLevel)
	if child.GetLevel() != ErrorLevel {
		t.Errorf("Child level = %v, want ERROR", child.GetLevel())
	}

	child.Warn("suppressed")
	if buf.Len() != 0 {
		t.Errorf("Expected no output, got %s", buf.String())
	}
}

func TestJSONLogger_ConcurrentLinesIntact(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			l := logger.With(Int("worker", g))
			for i := 0; i < 50; i++ {
				l.Info("append", Index(uint64(i)))
			}
		}(g)
	}
	wg.Wait()

	if got := len(decodeLines(t, &buf)); got != 400 {
		t.Errorf("Expected 400 intact lines, got %d", got)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	op := StartTimer(logger, "compact", Operation("compact"))
	time.Sleep(time.Millisecond)
	op.End(FirstIndex(10))

	op = StartTimer(logger, "flush")
	op.EndError(errors.New("fsync: input/output error"))

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Fields["latency"] == nil || entries[0].Fields["first_index"] != float64(10) {
		t.Errorf("Unexpected fields: %v", entries[0].Fields)
	}
	if entries[1].Level != "ERROR" || entries[1].Message != "flush failed" {
		t.Errorf("Unexpected error entry: %+v", entries[1])
	}
}

func TestDefaultLogger_Env(t *testing.T) {
	t.Setenv(EnvLevel, "error")
	SetDefaultLogger(nil)
	t.Cleanup(func() { SetDefaultLogger(nil) })

	if got := DefaultLogger().GetLevel(); got != ErrorLevel {
		t.Errorf("DefaultLogger level = %v, want ERROR", got)
	}

	SetDefaultLogger(NewNopLogger())
	if _, ok := DefaultLogger().(NopLogger); !ok {
		t.Errorf("SetDefaultLogger did not take effect")
	}
}
