// Package event defines the notification events emitted whenever an expense
// or its participants change. Delivery is fire-and-forget; the push subsystem
// consuming these events lives outside the ledger core.
package event

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Type identifies the kind of notification event.
type Type string

const (
	// TypeExpenseUpdate signals that an expense or its participants changed.
	TypeExpenseUpdate Type = "expense_update"
	// TypeProfileUpdate signals a change to a user-facing profile attribute.
	TypeProfileUpdate Type = "profile_update"
	// TypeApprovalDigest carries a batched summary of queued approvals.
	TypeApprovalDigest Type = "approval_digest"
)

// IsValid checks if the event type is one of the defined constants.
func (t Type) IsValid() bool {
	switch t {
	case TypeExpenseUpdate, TypeProfileUpdate, TypeApprovalDigest:
		return true
	}
	return false
}

// String returns the string representation of the event type.
func (t Type) String() string {
	return string(t)
}

// Event is a single notification.
type Event struct {
	ID        string         `json:"id"`
	Type      Type           `json:"type"`
	GroupID   string         `json:"group_id,omitempty"`
	ExpenseID string         `json:"expense_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewExpenseUpdate creates an expense_update event with an auto-generated ID.
func NewExpenseUpdate(groupID, expenseID string, payload map[string]any) *Event {
	return &Event{
		ID:        generateID(),
		Type:      TypeExpenseUpdate,
		GroupID:   groupID,
		ExpenseID: expenseID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewApprovalDigest creates an approval_digest event summarising the pending
// approval queue for a group.
func NewApprovalDigest(groupID string, pendingCount int) *Event {
	return &Event{
		ID:      generateID(),
		Type:    TypeApprovalDigest,
		GroupID: groupID,
		Payload: map[string]any{
			"pending_count": pendingCount,
		},
		Timestamp: time.Now(),
	}
}

// WithPayload returns a copy of the event with one added payload entry.
func (e *Event) WithPayload(key string, value any) *Event {
	payload := make(map[string]any, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	clone := *e
	clone.Payload = payload
	return &clone
}

// generateID creates a unique ID from a timestamp and random bytes.
func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), hex.EncodeToString(b))
}
