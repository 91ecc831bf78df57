package transport

import (
	"time"

	"github.com/mcuflash/mcuflash-go/pkg/trace"
)

// portTracer emits capture events for one transport instance.
type portTracer struct {
	logger trace.Logger
	portID string
	port   string
}

func newPortTracer(logger trace.Logger, port string) *portTracer {
	return &portTracer{logger: trace.OrNoop(logger), port: port}
}

func (t *portTracer) setPortID(id string) {
	t.portID = id
}

func (t *portTracer) chunk(dir trace.Direction, data []byte) {
	t.logger.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    t.portID,
		Direction: dir,
		Layer:     trace.LayerTransport,
		Category:  trace.CategoryData,
		Port:      t.port,
		Chunk:     trace.NewChunkEvent(data),
	})
}

func (t *portTracer) state(oldState, newState, reason string) {
	t.logger.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    t.portID,
		Direction: trace.DirectionOut,
		Layer:     trace.LayerTransport,
		Category:  trace.CategoryState,
		Port:      t.port,
		StateChange: &trace.StateChangeEvent{
			Entity:   trace.StateEntityTransport,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func (t *portTracer) error(msg, context string) {
	t.logger.Log(trace.Event{
		Timestamp: time.Now(),
		PortID:    t.portID,
		Direction: trace.DirectionIn,
		Layer:     trace.LayerTransport,
		Category:  trace.CategoryError,
		Port:      t.port,
		Error: &trace.ErrorEventData{
			Layer:   trace.LayerTransport,
			Message: msg,
			Context: context,
		},
	})
}
