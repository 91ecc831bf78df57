package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// RunExport exports the trace file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	// Determine output writer
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *trace.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *trace.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	// Write header
	header := []string{"timestamp", "port_id", "direction", "layer", "category", "port", "chip", "type", "op", "offset", "length"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		// Determine event type and command fields
		eventType := "unknown"
		op := ""
		offset := ""
		length := ""
		switch {
		case event.Chunk != nil:
			eventType = "data"
			length = fmt.Sprintf("%d", event.Chunk.Size)
		case event.Command != nil:
			eventType = "command"
			op = event.Command.Op
			if event.Command.Offset != nil {
				offset = fmt.Sprintf("%d", *event.Command.Offset)
			}
			if event.Command.Length != nil {
				length = fmt.Sprintf("%d", *event.Command.Length)
			}
		case event.StateChange != nil:
			eventType = "state"
		case event.Error != nil:
			eventType = "error"
		}

		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.PortID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Port,
			event.Chip,
			eventType,
			op,
			offset,
			length,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
