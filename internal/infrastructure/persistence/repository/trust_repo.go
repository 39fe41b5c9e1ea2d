package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// TrustRepository implements port.TrustRepository over SQLite
type TrustRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTrustRepository creates a new trust repository
func NewTrustRepository(db *sql.DB, logger *zap.Logger) port.TrustRepository {
	return &TrustRepository{
		db:     db,
		logger: logger,
	}
}

// GetByGroupAndUser retrieves a member's trust record
func (r *TrustRepository) GetByGroupAndUser(ctx context.Context, groupID, userID string) (*entity.GroupMemberTrust, error) {
	query := `
		SELECT group_id, user_id, trust_level, total_expenses_created,
			total_expenses_approved, rejection_count, last_rejection_date,
			auto_approve_limit, created_at, updated_at
		FROM group_member_trust
		WHERE group_id = ? AND user_id = ?
	`

	var t entity.GroupMemberTrust
	var limit string
	var lastRejection sql.NullTime

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, groupID, userID).Scan(
		&t.GroupID, &t.UserID, &t.TrustLevel, &t.TotalExpensesCreated,
		&t.TotalExpensesApproved, &t.RejectionCount, &lastRejection,
		&limit, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: trust for user %s in group %s", entity.ErrNotFound, userID, groupID)
	}
	if err != nil {
		r.logger.Error("Failed to get trust record",
			zap.String("group_id", groupID), zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get trust record: %w", err)
	}

	if t.AutoApproveLimit, err = decimal.NewFromString(limit); err != nil {
		return nil, fmt.Errorf("parse trust limit: %w", err)
	}
	if lastRejection.Valid {
		t.LastRejectionDate = &lastRejection.Time
	}
	return &t, nil
}

// Create inserts a member's trust record
func (r *TrustRepository) Create(ctx context.Context, trust *entity.GroupMemberTrust) error {
	query := `
		INSERT INTO group_member_trust (
			group_id, user_id, trust_level, total_expenses_created,
			total_expenses_approved, rejection_count, last_rejection_date,
			auto_approve_limit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		trust.GroupID,
		trust.UserID,
		trust.TrustLevel,
		trust.TotalExpensesCreated,
		trust.TotalExpensesApproved,
		trust.RejectionCount,
		trust.LastRejectionDate,
		trust.AutoApproveLimit.StringFixed(2),
	)
	if err != nil {
		r.logger.Error("Failed to create trust record",
			zap.String("group_id", trust.GroupID), zap.String("user_id", trust.UserID), zap.Error(err))
		return fmt.Errorf("create trust record: %w", err)
	}
	return nil
}

// Update writes a member's trust counters and derived level
func (r *TrustRepository) Update(ctx context.Context, trust *entity.GroupMemberTrust) error {
	query := `
		UPDATE group_member_trust
		SET trust_level = ?, total_expenses_created = ?,
			total_expenses_approved = ?, rejection_count = ?,
			last_rejection_date = ?, auto_approve_limit = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ? AND user_id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		trust.TrustLevel,
		trust.TotalExpensesCreated,
		trust.TotalExpensesApproved,
		trust.RejectionCount,
		trust.LastRejectionDate,
		trust.AutoApproveLimit.StringFixed(2),
		trust.GroupID,
		trust.UserID,
	)
	if err != nil {
		r.logger.Error("Failed to update trust record",
			zap.String("group_id", trust.GroupID), zap.String("user_id", trust.UserID), zap.Error(err))
		return fmt.Errorf("update trust record: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: trust for user %s in group %s", entity.ErrNotFound, trust.UserID, trust.GroupID)
	}
	return nil
}

// Verify interface compliance
var _ port.TrustRepository = (*TrustRepository)(nil)
