package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupApprovalSettings holds the per-group auto-approval thresholds.
// One row per group, created lazily with defaults on first access.
type GroupApprovalSettings struct {
	GroupID                 string          `json:"group_id"`
	AutoApproveLimit        decimal.Decimal `json:"auto_approve_limit"`
	ReceiptAutoApproveLimit decimal.Decimal `json:"receipt_auto_approve_limit"`
	RequireReceiptAbove     decimal.Decimal `json:"require_receipt_above"`
	AutoApproveRecurring    bool            `json:"auto_approve_recurring"`
	BatchNotifications      bool            `json:"batch_notifications"`
	NotificationTime        string          `json:"notification_time"` // "HH:MM"
	CreatedAt               time.Time       `json:"created_at"`
	UpdatedAt               time.Time       `json:"updated_at"`
}

// DefaultApprovalSettings returns the lazily-created defaults for a group.
func DefaultApprovalSettings(groupID string) *GroupApprovalSettings {
	return &GroupApprovalSettings{
		GroupID:                 groupID,
		AutoApproveLimit:        decimal.NewFromFloat(25.00),
		ReceiptAutoApproveLimit: decimal.NewFromFloat(100.00),
		RequireReceiptAbove:     decimal.NewFromFloat(50.00),
		AutoApproveRecurring:    true,
		BatchNotifications:      true,
		NotificationTime:        "18:00",
	}
}
