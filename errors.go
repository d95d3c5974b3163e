package stride

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for engine lifecycle and system registration.
var (
	// ErrNoPlan indicates Update was called before any execution plan was built.
	ErrNoPlan = errors.New("no execution plan built")
	// ErrUpdateRunning indicates a lifecycle call overlapped a frame in flight.
	ErrUpdateRunning = errors.New("update already running")
	// ErrDuplicateSystem indicates two registrations share the same name.
	ErrDuplicateSystem = errors.New("duplicate system name")
	// ErrUnknownSystem indicates an operation referenced a name that was never registered.
	ErrUnknownSystem = errors.New("unknown system name")
	// ErrEmptyName indicates a registration with an empty system name.
	ErrEmptyName = errors.New("system name is empty")
)

// SystemError records one system failure during a frame: either the error
// the system returned or the value it panicked with, wrapped as an error.
// System failures are isolated; they reach the error handler and the
// samples table, never the Update return value.
type SystemError struct {
	System  string
	Stage   int
	Frame   uint64
	Elapsed time.Duration
	Err     error
}

// Error returns a human-readable string naming the system and its stage.
func (e *SystemError) Error() string {
	return fmt.Sprintf("system %s (stage %d, frame %d): %v", e.System, e.Stage, e.Frame, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is/As.
func (e *SystemError) Unwrap() error {
	return e.Err
}
