package obd

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means the adapter did not return its prompt in time.
	ErrTimeout = errors.New("obd: adapter response timed out")
	// ErrNoData means the adapter or the vehicle reported no data.
	ErrNoData = errors.New("obd: no data")
	// ErrUnknownPID means the name is not in the registry.
	ErrUnknownPID = errors.New("obd: unknown pid")
	// ErrDecode means the payload did not match the PID layout.
	ErrDecode = errors.New("obd: malformed response")
	// ErrNotConnected means the session has no vehicle link.
	ErrNotConnected = errors.New("obd: vehicle not connected")
)

// ConnectionError reports an adapter that could not be reached or
// initialized on a given port.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("obd: connection failed: %v", e.Err)
	}
	return fmt.Sprintf("obd: connection to %s failed: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
