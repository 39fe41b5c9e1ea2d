package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// MembershipRepository implements port.MembershipProvider over the
// group_memberships table. Writes to that table belong to the group
// management service, not this module.
type MembershipRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *sql.DB, logger *zap.Logger) port.MembershipProvider {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// IsActiveMember reports whether the user has an active membership row
func (r *MembershipRepository) IsActiveMember(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM group_memberships
			WHERE group_id = ? AND user_id = ? AND is_active = 1
		)`, groupID, userID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check membership",
			zap.String("group_id", groupID), zap.String("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// IsAdmin reports whether the user is an active owner of the group
func (r *MembershipRepository) IsAdmin(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM group_memberships
			WHERE group_id = ? AND user_id = ? AND role = ? AND is_active = 1
		)`, groupID, userID, entity.RoleOwner).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check admin role",
			zap.String("group_id", groupID), zap.String("user_id", userID), zap.Error(err))
		return false, fmt.Errorf("check admin role: %w", err)
	}
	return exists, nil
}

// ActiveMembers lists the group's active memberships in join order
func (r *MembershipRepository) ActiveMembers(ctx context.Context, groupID string) ([]*entity.GroupMembership, error) {
	query := `
		SELECT id, group_id, user_id, role, is_active, joined_at
		FROM group_memberships
		WHERE group_id = ? AND is_active = 1
		ORDER BY joined_at ASC, id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, groupID)
	if err != nil {
		r.logger.Error("Failed to list members", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []*entity.GroupMembership
	for rows.Next() {
		var m entity.GroupMembership
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.Role, &m.IsActive, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Verify interface compliance
var _ port.MembershipProvider = (*MembershipRepository)(nil)
