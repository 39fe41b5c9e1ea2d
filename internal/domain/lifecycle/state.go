package lifecycle

import "github.com/gota-app/expense-ledger/internal/domain/entity"

// State is an expense lifecycle state. Values are the persisted status
// strings from the entity package.
type State string

const (
	StatePendingApproval State = entity.StatusPendingApproval
	StateAutoApproved    State = entity.StatusAutoApproved
	StateApproved        State = entity.StatusApproved
	StatePending         State = entity.StatusPending
	StatePartial         State = entity.StatusPartial
	StateSettled         State = entity.StatusSettled
	StateRejected        State = entity.StatusRejected
)

var validStates = map[State]bool{
	StatePendingApproval: true,
	StateAutoApproved:    true,
	StateApproved:        true,
	StatePending:         true,
	StatePartial:         true,
	StateSettled:         true,
	StateRejected:        true,
}

// IsTerminal reports whether no further transition is ever allowed.
// rejected is absorbing; settled can still be reopened by a payment-state
// correction, so it is not terminal here.
func (s State) IsTerminal() bool {
	return s == StateRejected
}

// IsValid reports whether s is a recognized lifecycle state.
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the persisted representation.
func (s State) String() string {
	return string(s)
}
