package flash

// Stage identifies where a session is in its lifecycle.
type Stage uint8

const (
	StageIdle Stage = iota
	StageConnecting
	StageErasing
	StageWriting
	StageVerifying
	StageComplete
	StageError
)

// String returns the string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "IDLE"
	case StageConnecting:
		return "CONNECTING"
	case StageErasing:
		return "ERASING"
	case StageWriting:
		return "WRITING"
	case StageVerifying:
		return "VERIFYING"
	case StageComplete:
		return "COMPLETE"
	case StageError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the stage ends a session.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Event is one progress update on a session stream.
type Event struct {
	// Stage the session is in when the event is emitted.
	Stage Stage

	// Progress in percent, 0 to 100. Monotonic within a session.
	Progress int

	// Message is a human-readable description of the step.
	Message string

	// Err carries the failure on the terminal ERROR event, nil
	// otherwise.
	Err error
}
