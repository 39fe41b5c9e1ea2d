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

// SettingsRepository implements port.SettingsRepository over SQLite
type SettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB, logger *zap.Logger) port.SettingsRepository {
	return &SettingsRepository{
		db:     db,
		logger: logger,
	}
}

// GetByGroupID retrieves the group's approval settings
func (r *SettingsRepository) GetByGroupID(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error) {
	query := `
		SELECT group_id, auto_approve_limit, receipt_auto_approve_limit,
			require_receipt_above, auto_approve_recurring, batch_notifications,
			notification_time, created_at, updated_at
		FROM group_approval_settings
		WHERE group_id = ?
	`

	var s entity.GroupApprovalSettings
	var autoLimit, receiptLimit, receiptAbove string

	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, groupID).Scan(
		&s.GroupID, &autoLimit, &receiptLimit, &receiptAbove,
		&s.AutoApproveRecurring, &s.BatchNotifications, &s.NotificationTime,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: settings for group %s", entity.ErrNotFound, groupID)
	}
	if err != nil {
		r.logger.Error("Failed to get settings", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("get settings: %w", err)
	}

	if s.AutoApproveLimit, err = decimal.NewFromString(autoLimit); err != nil {
		return nil, fmt.Errorf("parse auto approve limit: %w", err)
	}
	if s.ReceiptAutoApproveLimit, err = decimal.NewFromString(receiptLimit); err != nil {
		return nil, fmt.Errorf("parse receipt limit: %w", err)
	}
	if s.RequireReceiptAbove, err = decimal.NewFromString(receiptAbove); err != nil {
		return nil, fmt.Errorf("parse receipt threshold: %w", err)
	}
	return &s, nil
}

// Create inserts the group's settings row
func (r *SettingsRepository) Create(ctx context.Context, settings *entity.GroupApprovalSettings) error {
	query := `
		INSERT INTO group_approval_settings (
			group_id, auto_approve_limit, receipt_auto_approve_limit,
			require_receipt_above, auto_approve_recurring, batch_notifications,
			notification_time
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		settings.GroupID,
		settings.AutoApproveLimit.StringFixed(2),
		settings.ReceiptAutoApproveLimit.StringFixed(2),
		settings.RequireReceiptAbove.StringFixed(2),
		settings.AutoApproveRecurring,
		settings.BatchNotifications,
		settings.NotificationTime,
	)
	if err != nil {
		r.logger.Error("Failed to create settings", zap.String("group_id", settings.GroupID), zap.Error(err))
		return fmt.Errorf("create settings: %w", err)
	}
	return nil
}

// Update replaces the group's settings values
func (r *SettingsRepository) Update(ctx context.Context, settings *entity.GroupApprovalSettings) error {
	query := `
		UPDATE group_approval_settings
		SET auto_approve_limit = ?, receipt_auto_approve_limit = ?,
			require_receipt_above = ?, auto_approve_recurring = ?,
			batch_notifications = ?, notification_time = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE group_id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		settings.AutoApproveLimit.StringFixed(2),
		settings.ReceiptAutoApproveLimit.StringFixed(2),
		settings.RequireReceiptAbove.StringFixed(2),
		settings.AutoApproveRecurring,
		settings.BatchNotifications,
		settings.NotificationTime,
		settings.GroupID,
	)
	if err != nil {
		r.logger.Error("Failed to update settings", zap.String("group_id", settings.GroupID), zap.Error(err))
		return fmt.Errorf("update settings: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: settings for group %s", entity.ErrNotFound, settings.GroupID)
	}
	return nil
}

// Verify interface compliance
var _ port.SettingsRepository = (*SettingsRepository)(nil)
