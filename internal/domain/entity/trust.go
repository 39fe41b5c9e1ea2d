package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupMemberTrust tracks a member's approval history within a group and the
// auto-approval limit derived from it. One row per (group, user), created
// lazily with defaults.
type GroupMemberTrust struct {
	GroupID               string          `json:"group_id"`
	UserID                string          `json:"user_id"`
	TrustLevel            string          `json:"trust_level"`
	TotalExpensesCreated  int             `json:"total_expenses_created"`
	TotalExpensesApproved int             `json:"total_expenses_approved"`
	RejectionCount        int             `json:"rejection_count"`
	LastRejectionDate     *time.Time      `json:"last_rejection_date,omitempty"`
	AutoApproveLimit      decimal.Decimal `json:"auto_approve_limit"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// DefaultMemberTrust returns the lazily-created trust record for a new member.
func DefaultMemberTrust(groupID, userID string) *GroupMemberTrust {
	return &GroupMemberTrust{
		GroupID:          groupID,
		UserID:           userID,
		TrustLevel:       TrustNew,
		AutoApproveLimit: decimal.Zero,
	}
}
