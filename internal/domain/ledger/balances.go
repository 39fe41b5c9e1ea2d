// Package ledger aggregates participant rows into balances and reduces a
// group's balance map to a minimal set of pairwise settlements.
package ledger

import "github.com/shopspring/decimal"

// Balance status values derived from a member's net balance.
const (
	BalanceSettled = "settled" // net zero
	BalanceOwed    = "owed"    // positive, is owed money
	BalanceOwes    = "owes"    // negative, owes money
)

// MemberBalance is one member's net position within a group.
type MemberBalance struct {
	UserID  string          `json:"user_id"`
	Balance decimal.Decimal `json:"balance"`
	Status  string          `json:"status"`
}

// NewMemberBalance derives the status from the net balance
// (paid minus owed across all active participant rows).
func NewMemberBalance(userID string, balance decimal.Decimal) MemberBalance {
	return MemberBalance{
		UserID:  userID,
		Balance: balance,
		Status:  balanceStatus(balance),
	}
}

func balanceStatus(balance decimal.Decimal) string {
	switch {
	case balance.IsZero():
		return BalanceSettled
	case balance.IsPositive():
		return BalanceOwed
	default:
		return BalanceOwes
	}
}

// GroupSummary aggregates a group's active expenses, optionally with
// user-specific figures when a user is supplied to the query.
type GroupSummary struct {
	TotalExpenses int             `json:"total_expenses"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	PendingCount  int             `json:"pending_count"`
	PartialCount  int             `json:"partial_count"`
	SettledCount  int             `json:"settled_count"`

	User *UserSummary `json:"user,omitempty"`
}

// UserSummary is the per-user slice of a group summary.
type UserSummary struct {
	UserID          string          `json:"user_id"`
	Balance         decimal.Decimal `json:"balance"`
	ExpenseCount    int             `json:"expense_count"`
	TotalOwed       decimal.Decimal `json:"total_owed"`
	TotalPaid       decimal.Decimal `json:"total_paid"`
	PendingPayments int             `json:"pending_payments"`
}
