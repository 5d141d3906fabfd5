package fsm

import (
	"errors"
	"fmt"
)

// Sentinel errors for machine operations.
var (
	ErrIllegalTransition = errors.New("fsm: illegal transition")
	ErrHookFailed        = errors.New("fsm: hook failed")
	ErrInvalidConfig     = errors.New("fsm: invalid config")
)

// IllegalTransitionError is returned when the requested target is not listed
// for the current state. Nothing ran and nothing changed.
type IllegalTransitionError struct {
	Prev    State
	Attempt State
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("fsm: transition from %q to %q is not allowed", e.Prev, e.Attempt)
}

func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// HookError wraps the first hook failure of a transition.
// Committed reports whether the machine had already moved to Target when the
// hook failed; the remaining hooks were skipped either way.
type HookError struct {
	Key       HookKey
	Prev      State
	Target    State
	Committed bool
	Err       error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("fsm: hook %s failed during %s -> %s: %v", e.Key, e.Prev, e.Target, e.Err)
}

func (e *HookError) Is(target error) bool {
	return target == ErrHookFailed
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// IsIllegalTransition checks if err is an illegal transition error.
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}
