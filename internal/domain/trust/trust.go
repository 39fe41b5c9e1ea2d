// Package trust recalculates a member's trust score and level from their
// approval history. The classifier is re-evaluated from scratch on every
// outcome, so later rejections can demote a member back to "new".
package trust

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

const (
	rejectionPenaltyStep = 0.1
	rejectionPenaltyCap  = 0.3
)

// Auto-approve limits granted per tier.
var (
	highTierLimit = decimal.NewFromFloat(75.00)
	baseTierLimit = decimal.NewFromFloat(50.00)
)

// Score computes the trust score from the recorded metrics:
// approval_rate minus a capped rejection penalty, floored at zero.
func Score(rec *entity.GroupMemberTrust) float64 {
	if rec.TotalExpensesCreated == 0 {
		return 0.0
	}

	approvalRate := float64(rec.TotalExpensesApproved) / float64(rec.TotalExpensesCreated)
	penalty := float64(rec.RejectionCount) * rejectionPenaltyStep
	if penalty > rejectionPenaltyCap {
		penalty = rejectionPenaltyCap
	}

	score := approvalRate - penalty
	if score < 0 {
		return 0.0
	}
	return score
}

// RecordOutcome applies one approval or rejection outcome to the metrics and
// reassigns the trust level and auto-approve limit in place.
func RecordOutcome(rec *entity.GroupMemberTrust, approved bool, now time.Time) {
	rec.TotalExpensesCreated++
	if approved {
		rec.TotalExpensesApproved++
	} else {
		rec.RejectionCount++
		t := now
		rec.LastRejectionDate = &t
	}
	Reassign(rec)
}

// Reassign recomputes the trust level and derived auto-approve limit from the
// current metrics. The high tier additionally requires a near-clean rejection
// record; rejection_count > 1 blocks it regardless of approval volume.
func Reassign(rec *entity.GroupMemberTrust) {
	score := Score(rec)

	switch {
	case rec.TotalExpensesApproved >= 10 && score >= 0.9 && rec.RejectionCount <= 1:
		rec.TrustLevel = entity.TrustTrusted
		rec.AutoApproveLimit = highTierLimit
	case rec.TotalExpensesApproved >= 3 && score >= 0.8:
		rec.TrustLevel = entity.TrustTrusted
		rec.AutoApproveLimit = baseTierLimit
	default:
		rec.TrustLevel = entity.TrustNew
		rec.AutoApproveLimit = decimal.Zero
	}
}
