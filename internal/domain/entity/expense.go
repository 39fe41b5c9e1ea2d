package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense represents a shared expense within a group. The sum of all active
// participants' AmountOwed always equals TotalAmount to the cent.
type Expense struct {
	ID              string          `json:"id"`
	GroupID         string          `json:"group_id"`
	PaidByUserID    string          `json:"paid_by_user_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
	SplitType       string          `json:"split_type"`
	Status          string          `json:"status"`
	HasReceipt      bool            `json:"has_receipt"`
	ApprovedBy      string          `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time      `json:"approved_at,omitempty"`
	ApprovalType    string          `json:"approval_type,omitempty"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsApproved reports whether the expense has cleared approval and entered
// (or finished) the payment-tracking phase.
func (e *Expense) IsApproved() bool {
	switch e.Status {
	case StatusAutoApproved, StatusApproved, StatusPending, StatusPartial, StatusSettled:
		return true
	}
	return false
}

// NeedsApproval reports whether the expense is still awaiting an approval
// decision.
func (e *Expense) NeedsApproval() bool {
	return e.Status == StatusPendingApproval
}

// ExpenseParticipant is one user's share of an expense. Unique per
// (expense, user).
type ExpenseParticipant struct {
	ID         string          `json:"id"`
	ExpenseID  string          `json:"expense_id"`
	UserID     string          `json:"user_id"`
	AmountOwed decimal.Decimal `json:"amount_owed"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Status     string          `json:"status"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Balance returns paid minus owed; negative means the participant still owes
// money on this expense.
func (p *ExpenseParticipant) Balance() decimal.Decimal {
	return p.AmountPaid.Sub(p.AmountOwed)
}

// Remaining returns the unpaid portion of the participant's share, never
// negative.
func (p *ExpenseParticipant) Remaining() decimal.Decimal {
	rem := p.AmountOwed.Sub(p.AmountPaid)
	if rem.IsNegative() {
		return decimal.Zero
	}
	return rem
}
