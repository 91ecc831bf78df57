package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[trace.Layer]int
	EventsByCategory  map[trace.Category]int
	EventsByDirection map[trace.Direction]int
	CommandCounts     map[string]int
	Ports             map[string]*PortStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// PortStats holds statistics for a single opened port.
type PortStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Port      string
	Chip      string
	BytesIn   int
	BytesOut  int
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := trace.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open trace file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[trace.Layer]int),
		EventsByCategory:  make(map[trace.Category]int),
		EventsByDirection: make(map[trace.Direction]int),
		CommandCounts:     make(map[string]int),
		Ports:             make(map[string]*PortStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track per-port stats
		port, ok := stats.Ports[event.PortID]
		if !ok {
			port = &PortStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Ports[event.PortID] = port
		}
		port.Events++
		if event.Timestamp.After(port.LastSeen) {
			port.LastSeen = event.Timestamp
		}
		if event.Port != "" && port.Port == "" {
			port.Port = event.Port
		}
		if event.Chip != "" && port.Chip == "" {
			port.Chip = event.Chip
		}

		// Count raw bytes per direction
		if event.Chunk != nil {
			switch event.Direction {
			case trace.DirectionIn:
				port.BytesIn += event.Chunk.Size
			case trace.DirectionOut:
				port.BytesOut += event.Chunk.Size
			}
		}

		// Count commands sent to the device by opcode
		if event.Command != nil && event.Direction == trace.DirectionOut {
			stats.CommandCounts[event.Command.Op]++
		}

		// Count errors
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Flash Session Trace Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by layer
	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []trace.Layer{trace.LayerTransport, trace.LayerBootloader, trace.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []trace.Category{trace.CategoryData, trace.CategoryCommand, trace.CategoryState, trace.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by direction
	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []trace.Direction{trace.DirectionIn, trace.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Commands by opcode
	if len(stats.CommandCounts) > 0 {
		fmt.Fprintln(w, "Commands Sent:")
		ops := make([]string, 0, len(stats.CommandCounts))
		for op := range stats.CommandCounts {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			fmt.Fprintf(w, "  %-12s %d\n", op+":", stats.CommandCounts[op])
		}
		fmt.Fprintln(w)
	}

	// Ports
	fmt.Fprintf(w, "Ports: %d\n", len(stats.Ports))
	if len(stats.Ports) > 0 {
		// Sort by first seen time
		type portInfo struct {
			id    string
			stats *PortStats
		}
		ports := make([]portInfo, 0, len(stats.Ports))
		for id, ps := range stats.Ports {
			ports = append(ports, portInfo{id, ps})
		}
		sort.Slice(ports, func(i, j int) bool {
			return ports[i].stats.FirstSeen.Before(ports[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, p := range ports {
			duration := p.stats.LastSeen.Sub(p.stats.FirstSeen).Round(time.Millisecond)
			shortID := p.id
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortID, p.stats.Events, duration)
			if p.stats.Port != "" {
				fmt.Fprintf(w, "           Port: %s\n", p.stats.Port)
			}
			if p.stats.Chip != "" {
				fmt.Fprintf(w, "           Chip: %s\n", p.stats.Chip)
			}
			if p.stats.BytesIn > 0 || p.stats.BytesOut > 0 {
				fmt.Fprintf(w, "           Bytes: %d out, %d in\n", p.stats.BytesOut, p.stats.BytesIn)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
