package lifecycle

// Trigger is an event that can cause a state transition.
type Trigger string

const (
	// TriggerAutoApprove moves a new expense straight past manual review.
	TriggerAutoApprove Trigger = "AUTO_APPROVE"
	// TriggerApprove records a manual (or batch) approval decision.
	TriggerApprove Trigger = "APPROVE"
	// TriggerReject terminally rejects a pending expense.
	TriggerReject Trigger = "REJECT"
	// TriggerActivate starts payment tracking on an approved expense.
	TriggerActivate Trigger = "ACTIVATE"
	// TriggerRecalculate re-derives the payment status from participant sums.
	TriggerRecalculate Trigger = "RECALCULATE"
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	return string(t)
}
