package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is returned by operations that need a running session.
	ErrNoActiveSession = errors.New("no active session")
	// ErrWorkoutNotFound is returned when the workout is not in the local store.
	ErrWorkoutNotFound = errors.New("workout not found")
	// ErrWorkoutFinished is returned when starting a completed or skipped workout.
	ErrWorkoutFinished = errors.New("workout already finished")
	// ErrInstanceNotFound is returned when the cursor points at a position
	// with no exercise instance.
	ErrInstanceNotFound = errors.New("exercise instance not found")
	// ErrSetNotFound is returned when the cursor points past an instance's sets.
	ErrSetNotFound = errors.New("set not found")
)

// ValidationError rejects a logged value. No state changes when it is
// returned.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
