package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error

	// GetByID returns entity.ErrNotFound for missing or inactive rows.
	GetByID(ctx context.Context, id string) (*entity.Expense, error)
	GetByGroupID(ctx context.Context, groupID string, limit, offset int) ([]*entity.Expense, error)

	// ListForExport returns all active expenses of the group, optionally
	// bounded by creation time, oldest first.
	ListForExport(ctx context.Context, groupID string, start, end *time.Time) ([]*entity.Expense, error)

	UpdateStatus(ctx context.Context, id string, status string) error
	SetApproval(ctx context.Context, id string, approvedBy string, approvalType string, approvedAt time.Time) error
	SetRejection(ctx context.Context, id string, rejectedBy string, reason string) error

	CountByGroup(ctx context.Context, groupID string) (int, error)
	CountByGroupAndStatus(ctx context.Context, groupID, status string) (int, error)

	// CountAutoApproved counts active expenses whose approval type is one of
	// the auto_* reasons. Tracked via approval_type because auto-approved
	// expenses advance to the payment statuses immediately.
	CountAutoApproved(ctx context.Context, groupID string) (int, error)
	SumByGroup(ctx context.Context, groupID string) (decimal.Decimal, error)

	// HasSimilarApproved reports whether the payer has an active expense in
	// the group with the given title prefix, total within [low, high], an
	// approved-or-later status, and creation time at or after since.
	HasSimilarApproved(ctx context.Context, groupID, payerID, titlePrefix string, low, high decimal.Decimal, since time.Time) (bool, error)
}

// ParticipantTotals aggregates one user's shares across a group's active
// expenses.
type ParticipantTotals struct {
	TotalOwed    decimal.Decimal `json:"total_owed"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	ExpenseCount int             `json:"expense_count"`
	PendingCount int             `json:"pending_count"`
}

// ParticipantRepository defines persistence operations for ExpenseParticipant
type ParticipantRepository interface {
	Create(ctx context.Context, p *entity.ExpenseParticipant) error
	GetByExpenseID(ctx context.Context, expenseID string) ([]*entity.ExpenseParticipant, error)
	UpdatePayment(ctx context.Context, id string, amountPaid decimal.Decimal, status string, paidAt *time.Time) error

	// GetTotals sums owed/paid over the user's active participant rows on the
	// group's active expenses. Missing rows yield zero totals, not an error.
	GetTotals(ctx context.Context, groupID, userID string) (*ParticipantTotals, error)
}

// SettingsRepository defines persistence operations for GroupApprovalSettings
type SettingsRepository interface {
	GetByGroupID(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error)
	Create(ctx context.Context, settings *entity.GroupApprovalSettings) error
	Update(ctx context.Context, settings *entity.GroupApprovalSettings) error
}

// TrustRepository defines persistence operations for GroupMemberTrust
type TrustRepository interface {
	GetByGroupAndUser(ctx context.Context, groupID, userID string) (*entity.GroupMemberTrust, error)
	Create(ctx context.Context, trust *entity.GroupMemberTrust) error
	Update(ctx context.Context, trust *entity.GroupMemberTrust) error
}

// QueueRepository defines persistence operations for the approval queue
type QueueRepository interface {
	Enqueue(ctx context.Context, entry *entity.ApprovalQueueEntry) error
	GetByExpenseID(ctx context.Context, expenseID string) (*entity.ApprovalQueueEntry, error)
	// GetByGroupID returns queue entries ordered by priority descending,
	// then enqueue time ascending.
	GetByGroupID(ctx context.Context, groupID string) ([]*entity.ApprovalQueueEntry, error)
	CountByGroupID(ctx context.Context, groupID string) (int, error)

	// PendingGroups returns the distinct group IDs that currently have
	// queued entries. Used by the digest worker.
	PendingGroups(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, expenseID string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
