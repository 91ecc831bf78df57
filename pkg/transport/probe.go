package transport

import (
	"go.bug.st/serial"
)

// ListPorts returns the device paths of all serial ports on the system.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

// New probes once and builds the transport the environment calls for:
//
//   - cfg.Simulated forces the simulator
//   - cfg.Port selects that serial port
//   - otherwise the first enumerable serial port is used, falling back
//     to the simulator when the system has none
//
// The returned transport is unopened and its kind never changes.
func New(cfg Config) (Transport, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Simulated {
		return NewSimulated(cfg), nil
	}
	if cfg.Port != "" {
		return NewSerial(cfg), nil
	}

	ports, err := ListPorts()
	if err != nil || len(ports) == 0 {
		return NewSimulated(cfg), nil
	}
	cfg.Port = ports[0]
	return NewSerial(cfg), nil
}
