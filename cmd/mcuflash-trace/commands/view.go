// Package commands implements the mcuflash-trace CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
	"github.com/mcuflash/mcuflash-go/pkg/wire"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Layer     *trace.Layer
	Direction *trace.Direction
	Category  *trace.Category
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event trace.Event) {
	// Header line: timestamp [port:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	portID := shortenPortID(event.PortID)
	dir := event.Direction.String()

	// Determine event type label
	var typeLabel string
	switch {
	case event.Chunk != nil:
		typeLabel = "Data"
	case event.Command != nil:
		typeLabel = event.Command.Op
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [port:%s] %-3s %s %s\n", ts, portID, dir, event.Layer.String(), typeLabel)

	// Type-specific details
	switch {
	case event.Chunk != nil:
		formatChunkDetails(w, event.Chunk)
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenPortID returns the first 8 characters of the port ID.
func shortenPortID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatChunkDetails writes raw data details.
func formatChunkDetails(w io.Writer, chunk *trace.ChunkEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", chunk.Size)
	if len(chunk.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(chunk.Data))
		if chunk.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatCommandDetails writes bootloader command details.
func formatCommandDetails(w io.Writer, cmd *trace.CommandEvent) {
	if cmd.Offset != nil {
		fmt.Fprintf(w, "  Offset: 0x%08X\n", *cmd.Offset)
	}
	if cmd.Length != nil {
		fmt.Fprintf(w, "  Length: %d\n", *cmd.Length)
	}
	if cmd.Status != nil {
		fmt.Fprintf(w, "  Status: %s (0x%02X)\n", wire.Status(*cmd.Status).String(), *cmd.Status)
	}
	if cmd.Attempt != nil {
		fmt.Fprintf(w, "  Attempt: %d\n", *cmd.Attempt)
	}
	if cmd.Elapsed != nil {
		fmt.Fprintf(w, "  Duration: %s\n", formatDuration(*cmd.Elapsed))
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *trace.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *trace.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (trace.Layer, error) {
	return parseLayer(s)
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (trace.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return trace.LayerTransport, nil
	case "bootloader":
		return trace.LayerBootloader, nil
	case "session":
		return trace.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, bootloader, or session)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (trace.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (trace.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return trace.DirectionIn, nil
	case "out":
		return trace.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (trace.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (trace.Category, error) {
	switch strings.ToLower(s) {
	case "data":
		return trace.CategoryData, nil
	case "command":
		return trace.CategoryCommand, nil
	case "state":
		return trace.CategoryState, nil
	case "error":
		return trace.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be data, command, state, or error)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Apply filter
		if filter.Layer != nil && event.Layer != *filter.Layer {
			continue
		}
		if filter.Direction != nil && event.Direction != *filter.Direction {
			continue
		}
		if filter.Category != nil && event.Category != *filter.Category {
			continue
		}

		formatEvent(output, event)
	}

	return nil
}
