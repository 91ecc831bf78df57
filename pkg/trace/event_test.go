package trace

import (
	"bytes"
	"testing"
	"time"
)

func TestEventCBORRoundTrip(t *testing.T) {
	ts := time.Date(2026, 7, 12, 9, 41, 7, 123456789, time.UTC)
	original := Event{
		Timestamp: ts,
		PortID:    "abc12345-def6-7890-abcd-ef1234567890",
		Direction: DirectionOut,
		Layer:     LayerBootloader,
		Category:  CategoryCommand,
		Port:      "/dev/ttyUSB0",
		Chip:      "ESP32",
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !decoded.Timestamp.Equal(original.Timestamp) {
		t.Errorf("Timestamp: got %v, want %v", decoded.Timestamp, original.Timestamp)
	}
	if decoded.PortID != original.PortID {
		t.Errorf("PortID: got %q, want %q", decoded.PortID, original.PortID)
	}
	if decoded.Direction != original.Direction {
		t.Errorf("Direction: got %v, want %v", decoded.Direction, original.Direction)
	}
	if decoded.Layer != original.Layer {
		t.Errorf("Layer: got %v, want %v", decoded.Layer, original.Layer)
	}
	if decoded.Category != original.Category {
		t.Errorf("Category: got %v, want %v", decoded.Category, original.Category)
	}
	if decoded.Port != original.Port {
		t.Errorf("Port: got %q, want %q", decoded.Port, original.Port)
	}
	if decoded.Chip != original.Chip {
		t.Errorf("Chip: got %q, want %q", decoded.Chip, original.Chip)
	}
}

func TestChunkEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		PortID:    "port-123",
		Direction: DirectionIn,
		Layer:     LayerTransport,
		Category:  CategoryData,
		Chunk: &ChunkEvent{
			Size:      4096,
			Data:      []byte{0x7E, 0x24, 0x04, 0x10},
			Truncated: true,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Chunk == nil {
		t.Fatal("Chunk is nil after decode")
	}
	if decoded.Chunk.Size != 4096 {
		t.Errorf("Chunk.Size: got %d, want 4096", decoded.Chunk.Size)
	}
	if !bytes.Equal(decoded.Chunk.Data, original.Chunk.Data) {
		t.Errorf("Chunk.Data: got %v, want %v", decoded.Chunk.Data, original.Chunk.Data)
	}
	if !decoded.Chunk.Truncated {
		t.Error("Chunk.Truncated: got false, want true")
	}
}

func TestCommandEventCBORRoundTrip(t *testing.T) {
	offset := uint32(8192)
	length := uint32(4096)
	status := uint8(0)
	elapsed := 12 * time.Millisecond
	original := Event{
		Timestamp: time.Now(),
		PortID:    "port-123",
		Direction: DirectionIn,
		Layer:     LayerBootloader,
		Category:  CategoryCommand,
		Command: &CommandEvent{
			Op:      "WRITE",
			Offset:  &offset,
			Length:  &length,
			Status:  &status,
			Elapsed: &elapsed,
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.Command == nil {
		t.Fatal("Command is nil after decode")
	}
	if decoded.Command.Op != "WRITE" {
		t.Errorf("Command.Op: got %q, want WRITE", decoded.Command.Op)
	}
	if decoded.Command.Offset == nil || *decoded.Command.Offset != 8192 {
		t.Errorf("Command.Offset: got %v, want 8192", decoded.Command.Offset)
	}
	if decoded.Command.Length == nil || *decoded.Command.Length != 4096 {
		t.Errorf("Command.Length: got %v, want 4096", decoded.Command.Length)
	}
	if decoded.Command.Status == nil || *decoded.Command.Status != 0 {
		t.Errorf("Command.Status: got %v, want 0", decoded.Command.Status)
	}
	if decoded.Command.Elapsed == nil || *decoded.Command.Elapsed != elapsed {
		t.Errorf("Command.Elapsed: got %v, want %v", decoded.Command.Elapsed, elapsed)
	}
}

func TestStateChangeEventCBORRoundTrip(t *testing.T) {
	original := Event{
		Timestamp: time.Now(),
		PortID:    "port-123",
		Direction: DirectionOut,
		Layer:     LayerSession,
		Category:  CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   StateEntitySession,
			OldState: "ERASING",
			NewState: "WRITING",
		},
	}

	data, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	decoded, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if decoded.StateChange == nil {
		t.Fatal("StateChange is nil after decode")
	}
	if decoded.StateChange.Entity != StateEntitySession {
		t.Errorf("Entity: got %v, want SESSION", decoded.StateChange.Entity)
	}
	if decoded.StateChange.OldState != "ERASING" || decoded.StateChange.NewState != "WRITING" {
		t.Errorf("states: got %q -> %q", decoded.StateChange.OldState, decoded.StateChange.NewState)
	}
}

func TestNewChunkEventTruncates(t *testing.T) {
	big := make([]byte, MaxChunkCapture+100)
	for i := range big {
		big[i] = byte(i)
	}

	ev := NewChunkEvent(big)
	if ev.Size != len(big) {
		t.Errorf("Size = %d, want %d", ev.Size, len(big))
	}
	if len(ev.Data) != MaxChunkCapture {
		t.Errorf("len(Data) = %d, want %d", len(ev.Data), MaxChunkCapture)
	}
	if !ev.Truncated {
		t.Error("Truncated = false, want true")
	}

	small := NewChunkEvent([]byte{1, 2, 3})
	if small.Truncated || small.Size != 3 || len(small.Data) != 3 {
		t.Errorf("small chunk: %+v", small)
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{DirectionIn.String(), "IN"},
		{DirectionOut.String(), "OUT"},
		{Direction(9).String(), "UNKNOWN"},
		{LayerTransport.String(), "TRANSPORT"},
		{LayerBootloader.String(), "BOOTLOADER"},
		{LayerSession.String(), "SESSION"},
		{CategoryData.String(), "DATA"},
		{CategoryCommand.String(), "COMMAND"},
		{CategoryState.String(), "STATE"},
		{CategoryError.String(), "ERROR"},
		{StateEntityTransport.String(), "TRANSPORT"},
		{StateEntitySession.String(), "SESSION"},
		{StateEntityMonitor.String(), "MONITOR"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
