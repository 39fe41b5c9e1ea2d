package lifecycle

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// PaymentFunc reports the payment state derived from participant sums.
// ok is false when no active participants exist.
type PaymentFunc func(ctx context.Context) (State, bool)

// NewExpenseMachine builds the expense lifecycle machine in the given state.
// hasParticipants guards the approved→pending activation: creation writes
// participants atomically, so the guard only matters as a safety net when an
// expense is activated before its participants exist. paymentState selects
// which recalculate edge fires; when it reports no active participants, all
// recalculate guards fail and the current state is kept.
func NewExpenseMachine(current State, hasParticipants GuardFunc, paymentState PaymentFunc) *Machine {
	paymentIs := func(want State) GuardFunc {
		return func(ctx context.Context) bool {
			got, ok := paymentState(ctx)
			return ok && got == want
		}
	}

	b := NewBuilder()

	b.Configure(StatePendingApproval).
		Permit(TriggerAutoApprove, StateAutoApproved).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	b.Configure(StateAutoApproved).
		PermitIf(TriggerActivate, StatePending, hasParticipants)
	b.Configure(StateApproved).
		PermitIf(TriggerActivate, StatePending, hasParticipants)

	for _, from := range []State{StatePending, StatePartial, StateSettled} {
		b.Configure(from).
			PermitIf(TriggerRecalculate, StateSettled, paymentIs(StateSettled)).
			PermitIf(TriggerRecalculate, StatePartial, paymentIs(StatePartial)).
			PermitIf(TriggerRecalculate, StatePending, paymentIs(StatePending))
	}

	// rejected is absorbing: no triggers configured.
	b.Configure(StateRejected)

	return b.Build(current)
}

// machineFor binds the machine's guards to a concrete participant set.
func machineFor(current State, participants []*entity.ExpenseParticipant) *Machine {
	hasParticipants := func(context.Context) bool { return countActive(participants) > 0 }
	paymentState := func(context.Context) (State, bool) { return recompute(participants) }
	return NewExpenseMachine(current, hasParticipants, paymentState)
}

// PaymentStatus derives the payment-phase state from participant sums.
func PaymentStatus(totalOwed, totalPaid decimal.Decimal) State {
	switch {
	case totalPaid.GreaterThanOrEqual(totalOwed):
		return StateSettled
	case totalPaid.IsPositive():
		return StatePartial
	default:
		return StatePending
	}
}

// Advance recomputes an expense's status after creation or a payment.
// It is idempotent: a second call with no intervening payment returns the
// same status with changed=false.
//
//   - rejected never changes.
//   - auto_approved/approved move to pending once active participants exist
//     (payment tracking begins); without participants the status is kept.
//   - pending/partial are re-derived from the active participants' sums.
//   - settled stays settled here; use Refresh for explicit corrections.
func Advance(status string, participants []*entity.ExpenseParticipant) (string, bool) {
	current := State(status)
	if !current.IsValid() {
		return status, false
	}

	var trigger Trigger
	switch current {
	case StateAutoApproved, StateApproved:
		trigger = TriggerActivate
	case StatePending, StatePartial:
		trigger = TriggerRecalculate
	default:
		return status, false
	}

	return fire(current, trigger, participants)
}

// Refresh force-recalculates the payment status, including reopening a
// settled expense. Used by explicit state-correction calls only.
func Refresh(status string, participants []*entity.ExpenseParticipant) (string, bool) {
	current := State(status)
	switch current {
	case StatePending, StatePartial, StateSettled:
		return fire(current, TriggerRecalculate, participants)
	default:
		return status, false
	}
}

// fire runs the trigger through the machine. A failed guard (no active
// participants, or activation before participants exist) keeps the stored
// status.
func fire(current State, trigger Trigger, participants []*entity.ExpenseParticipant) (string, bool) {
	m := machineFor(current, participants)
	if err := m.Fire(context.Background(), trigger); err != nil {
		return string(current), false
	}
	return string(m.State()), m.State() != current
}

// recompute derives the payment state from active participant sums.
// ok is false when no active participants remain; callers keep the stored
// status in that case.
func recompute(participants []*entity.ExpenseParticipant) (State, bool) {
	totalOwed := decimal.Zero
	totalPaid := decimal.Zero
	active := 0
	for _, p := range participants {
		if !p.IsActive {
			continue
		}
		active++
		totalOwed = totalOwed.Add(p.AmountOwed)
		totalPaid = totalPaid.Add(p.AmountPaid)
	}
	if active == 0 {
		return "", false
	}
	return PaymentStatus(totalOwed, totalPaid), true
}

func countActive(participants []*entity.ExpenseParticipant) int {
	n := 0
	for _, p := range participants {
		if p.IsActive {
			n++
		}
	}
	return n
}
