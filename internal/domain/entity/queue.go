package entity

import "time"

// ApprovalQueueEntry is an ephemeral marker that an expense awaits manual
// approval. Deleted on approve or reject.
type ApprovalQueueEntry struct {
	ID        int64     `json:"id"`
	GroupID   string    `json:"group_id"`
	ExpenseID string    `json:"expense_id"`
	Priority  int       `json:"priority"` // higher = more urgent
	CreatedAt time.Time `json:"created_at"`
}
