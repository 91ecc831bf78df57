package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

func TestStatsCountsByLayer(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "SYNC"}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerSession, Category: trace.CategoryState, StateChange: &trace.StateChangeEvent{Entity: trace.StateEntitySession, NewState: "CONNECTING"}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Events by Layer:") {
		t.Errorf("expected layer section, got: %s", output)
	}
	if !strings.Contains(output, "TRANSPORT:") {
		t.Errorf("expected TRANSPORT count, got: %s", output)
	}
	if !strings.Contains(output, "BOOTLOADER:") {
		t.Errorf("expected BOOTLOADER count, got: %s", output)
	}
	if !strings.Contains(output, "SESSION:") {
		t.Errorf("expected SESSION count, got: %s", output)
	}
}

func TestStatsCountsByCategory(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "SYNC"}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerSession, Category: trace.CategoryState, StateChange: &trace.StateChangeEvent{Entity: trace.StateEntitySession, NewState: "ERASING"}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerBootloader, Category: trace.CategoryError, Error: &trace.ErrorEventData{Layer: trace.LayerBootloader, Message: "timeout"}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Events by Category:") {
		t.Errorf("expected category section, got: %s", output)
	}
	for _, label := range []string{"DATA:", "COMMAND:", "STATE:", "ERROR:"} {
		if !strings.Contains(output, label) {
			t.Errorf("expected %s count, got: %s", label, output)
		}
	}
}

func TestStatsCountsPorts(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, PortID: "port-aaa-1111", Layer: trace.LayerTransport, Category: trace.CategoryData, Port: "/dev/ttyUSB0", Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: ts, PortID: "port-aaa-1111", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: ts.Add(time.Second), PortID: "port-bbb-2222", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Ports: 2") {
		t.Errorf("expected 2 ports, got: %s", output)
	}
	if !strings.Contains(output, "[port-aaa]") {
		t.Errorf("expected shortened port ID, got: %s", output)
	}
	if !strings.Contains(output, "Port: /dev/ttyUSB0") {
		t.Errorf("expected port path, got: %s", output)
	}
}

func TestStatsTotalEvents(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "SYNC"}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "ERASE"}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Total Events: 3") {
		t.Errorf("expected total of 3 events, got: %s", buf.String())
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: start, PortID: "p1", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
		{Timestamp: start.Add(time.Hour), PortID: "p1", Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 8}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Time Range:") {
		t.Errorf("expected time range, got: %s", output)
	}
	if !strings.Contains(output, "Duration:") {
		t.Errorf("expected duration, got: %s", output)
	}
	if !strings.Contains(output, "1h0m0s") {
		t.Errorf("expected 1 hour duration, got: %s", output)
	}
}

func TestStatsCommandCounts(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	status := uint8(0)
	events := []trace.Event{
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionOut, Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "SYNC"}},
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionOut, Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "WRITE"}},
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionOut, Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "WRITE"}},
		// Responses are not counted as sent commands.
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionIn, Layer: trace.LayerBootloader, Category: trace.CategoryCommand, Command: &trace.CommandEvent{Op: "WRITE", Status: &status}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "Commands Sent:") {
		t.Errorf("expected command section, got: %s", output)
	}
	if !strings.Contains(output, "WRITE:") {
		t.Errorf("expected WRITE count, got: %s", output)
	}
	if !strings.Contains(output, "SYNC:") {
		t.Errorf("expected SYNC count, got: %s", output)
	}
}

func TestStatsByteTotals(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionOut, Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 4096}},
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionOut, Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 4096}},
		{Timestamp: ts, PortID: "p1", Direction: trace.DirectionIn, Layer: trace.LayerTransport, Category: trace.CategoryData, Chunk: &trace.ChunkEvent{Size: 6}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Bytes: 8192 out, 6 in") {
		t.Errorf("expected byte totals, got: %s", buf.String())
	}
}

func TestStatsErrorCount(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []trace.Event{
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerBootloader, Category: trace.CategoryError, Error: &trace.ErrorEventData{Layer: trace.LayerBootloader, Message: "sync timeout"}},
		{Timestamp: ts, PortID: "p1", Layer: trace.LayerSession, Category: trace.CategoryError, Error: &trace.ErrorEventData{Layer: trace.LayerSession, Message: "flash failed"}},
	}

	path := createTestTraceFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}

	if !strings.Contains(buf.String(), "Errors: 2") {
		t.Errorf("expected 2 errors, got: %s", buf.String())
	}
}
