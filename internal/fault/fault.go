// Package fault defines the engine's error taxonomy. Callers branch on
// these types to tell malformed input, lost state-machine races, and
// expected user-facing outcomes apart from transport failures; the engine
// never swallows a violation.
package fault

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound marks a referenced entity that does not exist.
var ErrNotFound = errors.New("not found")

// ErrPermissionDenied marks a caller acting outside its role or ownership.
var ErrPermissionDenied = errors.New("permission denied")

// ErrPlantCompleted marks any growth action against a completed plant.
var ErrPlantCompleted = errors.New("plant is completed")

// ValidationError is malformed input. Never retried.
type ValidationError struct {
	Msg string
}

func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Msg }

// InvalidTransitionError is a state-machine precondition violation,
// including a compare-and-set lost to a concurrent caller. Not retried
// automatically; the caller must re-fetch current state first.
type InvalidTransitionError struct {
	AssignmentID int64
	From         string
	Op           string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("assignment %d: cannot %s from status %q", e.AssignmentID, e.Op, e.From)
}

// InsufficientBalanceError reports a redemption attempt short of stickers.
// An expected outcome, not an engine failure.
type InsufficientBalanceError struct {
	Required  int
	Available int
}

func (e *InsufficientBalanceError) Shortfall() int { return e.Required - e.Available }

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("need %d stickers, have %d (short %d)", e.Required, e.Available, e.Shortfall())
}

// AlreadyWateredError reports a watering inside the 24-hour window.
// An expected outcome callers must handle as a normal result.
type AlreadyWateredError struct {
	NextAt time.Time
}

func (e *AlreadyWateredError) Error() string {
	return fmt.Sprintf("already watered; next watering at %s", e.NextAt.Format(time.RFC3339))
}

// NotEnoughExperienceError reports a stage advance without the banked
// experience to pay for it.
type NotEnoughExperienceError struct {
	Experience int
	Required   int
}

func (e *NotEnoughExperienceError) Error() string {
	return fmt.Sprintf("need %d experience to advance, have %d", e.Required, e.Experience)
}

// TransportError wraps a network-level failure. The only retryable kind:
// idempotent actions that hit one are eligible for the pending-action
// queue.
type TransportError struct {
	Err error
}

func Transport(err error) *TransportError { return &TransportError{Err: err} }

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transport failure worth retrying.
// Everything else in the taxonomy is deterministic and retrying changes
// nothing.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
