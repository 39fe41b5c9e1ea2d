package entity

import "errors"

// Domain error kinds. Services wrap these with context via fmt.Errorf("%w: ...").
var (
	// ErrInvalidInput is returned for malformed amounts, empty participant
	// sets, or bad split configuration.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotMember is returned when an actor or participant is not an active
	// member of the group.
	ErrNotMember = errors.New("not a group member")

	// ErrAmountMismatch is returned when a custom split does not sum to the
	// expense total.
	ErrAmountMismatch = errors.New("amounts do not match total")

	// ErrNotFound is returned when an expense or participant is absent or
	// inactive.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an action is attempted against a
	// status that forbids it.
	ErrInvalidState = errors.New("invalid state for action")

	// ErrForbidden is returned when the actor lacks the role required for
	// the action.
	ErrForbidden = errors.New("forbidden")
)
