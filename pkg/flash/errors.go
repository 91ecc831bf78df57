package flash

import "fmt"

// SessionBusyError is returned when a flash or erase request arrives
// while another session is still active on the same orchestrator.
type SessionBusyError struct {
	// Stage of the session that is already running.
	Stage Stage
}

func (e *SessionBusyError) Error() string {
	return fmt.Sprintf("another session is active (stage %s)", e.Stage)
}
