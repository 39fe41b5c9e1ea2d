package entity

// Expense status constants. Values match the persisted representation.
const (
	StatusPendingApproval = "pending_approval"
	StatusAutoApproved    = "auto_approved"
	StatusApproved        = "approved"
	StatusPending         = "pending" // active, awaiting payments
	StatusPartial         = "partial"
	StatusSettled         = "settled"
	StatusRejected        = "rejected"
)

// Split type constants
const (
	SplitEqual      = "equal"
	SplitPercentage = "percentage"
	SplitCustom     = "custom"
)

// Participant status constants
const (
	ParticipantPending = "pending"
	ParticipantPaid    = "paid"
	ParticipantSettled = "settled"
)

// Approval type constants recorded on approved expenses
const (
	ApprovalAutoAmount    = "auto_amount"
	ApprovalAutoTrust     = "auto_trust"
	ApprovalAutoReceipt   = "auto_receipt"
	ApprovalAutoRecurring = "auto_recurring"
	ApprovalManual        = "manual"
	ApprovalBatch         = "batch"
)

// Trust level constants
const (
	TrustNew     = "new"
	TrustTrusted = "trusted"
	TrustCoAdmin = "co_admin"
)

// Membership role constants
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// ValidSplitType reports whether s is a recognized split type.
func ValidSplitType(s string) bool {
	switch s {
	case SplitEqual, SplitPercentage, SplitCustom:
		return true
	}
	return false
}
