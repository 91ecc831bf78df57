package trace

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger.
// Useful for development when you want to see protocol traffic in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given
// slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("port_id", event.PortID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.Port != "" {
		attrs = append(attrs, slog.String("port", event.Port))
	}
	if event.Chip != "" {
		attrs = append(attrs, slog.String("chip", event.Chip))
	}

	switch {
	case event.Chunk != nil:
		attrs = append(attrs,
			slog.Int("chunk_size", event.Chunk.Size),
			slog.Bool("truncated", event.Chunk.Truncated),
		)
	case event.Command != nil:
		attrs = append(attrs, slog.String("op", event.Command.Op))
		if event.Command.Offset != nil {
			attrs = append(attrs, slog.Uint64("offset", uint64(*event.Command.Offset)))
		}
		if event.Command.Length != nil {
			attrs = append(attrs, slog.Uint64("length", uint64(*event.Command.Length)))
		}
		if event.Command.Status != nil {
			attrs = append(attrs, slog.Uint64("status", uint64(*event.Command.Status)))
		}
		if event.Command.Attempt != nil {
			attrs = append(attrs, slog.Int("attempt", *event.Command.Attempt))
		}
		if event.Command.Elapsed != nil {
			attrs = append(attrs, slog.Duration("elapsed", *event.Command.Elapsed))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
