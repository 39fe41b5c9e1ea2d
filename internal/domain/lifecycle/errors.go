package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when a trigger is not permitted from
	// the current state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrGuardFailed is returned when every candidate transition's guard
	// condition rejects the trigger.
	ErrGuardFailed = errors.New("guard condition failed")
)
