package monitor

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies a log line.
type Severity uint8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEvent is one line of device output, or an operational message
// injected alongside the device's own lines.
type LogEvent struct {
	// ID uniquely identifies the event.
	ID string

	// Text is the decoded line without its trailing newline.
	Text string

	// Severity is derived from the line content.
	Severity Severity

	// Timestamp is when the line was received.
	Timestamp time.Time
}

// NewLogEvent creates a LogEvent with a fresh ID and the current time.
func NewLogEvent(text string, severity Severity) LogEvent {
	return LogEvent{
		ID:        uuid.NewString(),
		Text:      text,
		Severity:  severity,
		Timestamp: time.Now(),
	}
}
