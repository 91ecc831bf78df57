package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

func createTestTraceFile(t *testing.T, events []trace.Event) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.ftrace")

	logger, err := trace.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func TestExportToJSONL(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	offset := uint32(0x1000)
	length := uint32(4096)
	events := []trace.Event{
		{
			Timestamp: ts,
			PortID:    "abc12345",
			Direction: trace.DirectionOut,
			Layer:     trace.LayerBootloader,
			Category:  trace.CategoryCommand,
			Command: &trace.CommandEvent{
				Op:     "WRITE",
				Offset: &offset,
				Length: &length,
			},
		},
		{
			Timestamp: ts.Add(time.Second),
			PortID:    "abc12345",
			Direction: trace.DirectionIn,
			Layer:     trace.LayerBootloader,
			Category:  trace.CategoryCommand,
			Command: &trace.CommandEvent{
				Op: "WRITE",
			},
		},
	}

	path := createTestTraceFile(t, events)

	// Export to JSONL via temp file
	outPath := filepath.Join(t.TempDir(), "out.jsonl")
	err := RunExport(path, "jsonl", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	// Read and verify
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d", len(lines))
	}

	// Parse first line
	var event1 map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &event1); err != nil {
		t.Errorf("failed to parse line 1: %v", err)
	}
	if event1["PortID"] != "abc12345" {
		t.Errorf("expected PortID abc12345, got %v", event1["PortID"])
	}
}

func TestExportToCSV(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []trace.Event{
		{
			Timestamp: ts,
			PortID:    "abc12345",
			Direction: trace.DirectionOut,
			Layer:     trace.LayerTransport,
			Category:  trace.CategoryData,
			Port:      "/dev/ttyUSB0",
			Chunk: &trace.ChunkEvent{
				Size: 64,
				Data: []byte{0x01, 0x02},
			},
		},
	}

	path := createTestTraceFile(t, events)

	outPath := filepath.Join(t.TempDir(), "out.csv")
	err := RunExport(path, "csv", outPath)
	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	// Check header
	if !strings.HasPrefix(string(data), "timestamp,port_id,direction,layer,category") {
		t.Errorf("expected CSV header, got: %s", string(data[:50]))
	}

	// Check data row exists
	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 {
		t.Errorf("expected header + data row, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "/dev/ttyUSB0") {
		t.Errorf("expected port in data row, got: %s", lines[1])
	}
}

func TestExportWritesToStdout(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []trace.Event{
		{
			Timestamp: ts,
			PortID:    "abc12345",
			Direction: trace.DirectionOut,
			Layer:     trace.LayerTransport,
			Category:  trace.CategoryData,
			Chunk:     &trace.ChunkEvent{Size: 64},
		},
	}

	path := createTestTraceFile(t, events)

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := RunExport(path, "jsonl", "") // empty output means stdout

	w.Close()
	os.Stdout = oldStdout

	if err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	var buf bytes.Buffer
	buf.ReadFrom(r)

	if buf.Len() == 0 {
		t.Error("expected output to stdout")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []trace.Event{
		{
			Timestamp: ts,
			PortID:    "abc12345",
			Chunk:     &trace.ChunkEvent{Size: 64},
		},
	}

	path := createTestTraceFile(t, events)
	outPath := filepath.Join(t.TempDir(), "out.xml")

	err := RunExport(path, "xml", outPath)
	if err == nil {
		t.Error("expected error for unknown format")
	}
	if !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected 'unknown format' error, got: %v", err)
	}
}
