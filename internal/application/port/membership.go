package port

import (
	"context"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// MembershipProvider resolves group membership. Backed by the
// group_memberships table but kept behind a port so it can be served by
// an external identity service later.
type MembershipProvider interface {
	// IsActiveMember reports whether the user is an active member of the group.
	IsActiveMember(ctx context.Context, groupID, userID string) (bool, error)

	// IsAdmin reports whether the user is an owner/admin of the group.
	IsAdmin(ctx context.Context, groupID, userID string) (bool, error)

	// ActiveMembers returns all active memberships of the group.
	ActiveMembers(ctx context.Context, groupID string) ([]*entity.GroupMembership, error)
}
