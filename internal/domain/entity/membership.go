package entity

import "time"

// GroupMembership is a user's membership row within a group. The ledger core
// only reads memberships; invitation and join flows live outside this module.
type GroupMembership struct {
	ID       string    `json:"id"`
	GroupID  string    `json:"group_id"`
	UserID   string    `json:"user_id"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
	JoinedAt time.Time `json:"joined_at"`
}
