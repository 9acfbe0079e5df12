package bounded

import (
	"errors"
	"fmt"
)

// Expected outcomes. None of these indicate a broken channel; they are the
// ordinary end-of-stream and back-pressure signals of the error-returning
// variants. The bool-returning operations express the same conditions
// through their return value.
var (
	ErrClosed  = errors.New("bounded: channel closed")
	ErrFull    = errors.New("bounded: channel full")
	ErrEmpty   = errors.New("bounded: channel empty")
	ErrTimeout = errors.New("bounded: wait timed out")
)

// ErrInit is matched by every construction failure.
var ErrInit = errors.New("bounded: initialization failed")

// InitError reports which construction step failed. It unwraps to both
// ErrInit and the underlying cause.
type InitError struct {
	Step string
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("bounded: init %s: %v", e.Step, e.Err)
}

func (e *InitError) Unwrap() []error {
	return []error{ErrInit, e.Err}
}
