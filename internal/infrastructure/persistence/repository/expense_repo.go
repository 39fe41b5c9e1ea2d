package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// autoApprovalTypes matches the approval_type values written by the
// auto-approval rules.
const autoApprovalTypes = "('auto_amount', 'auto_trust', 'auto_receipt', 'auto_recurring')"

const expenseColumns = `
	id, group_id, paid_by_user_id, title, description, total_amount,
	currency, split_type, status, has_receipt, approved_by, approved_at,
	approval_type, rejection_reason, is_active, created_at, updated_at
`

// ExpenseRepository implements port.ExpenseRepository over SQLite
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new expense row
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			id, group_id, paid_by_user_id, title, description, total_amount,
			currency, split_type, status, has_receipt, is_active,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		expense.ID,
		expense.GroupID,
		expense.PaidByUserID,
		expense.Title,
		expense.Description,
		expense.TotalAmount.StringFixed(2),
		expense.Currency,
		expense.SplitType,
		expense.Status,
		expense.HasReceipt,
		expense.IsActive,
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err), zap.String("id", expense.ID))
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an active expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	query := `SELECT` + expenseColumns + `FROM expenses WHERE id = ? AND is_active = 1`

	row := getExecutor(ctx, r.db).QueryRowContext(ctx, query, id)
	expense, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("Failed to get expense", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("get expense: %w", err)
	}
	return expense, nil
}

// GetByGroupID retrieves a page of the group's active expenses, newest first
func (r *ExpenseRepository) GetByGroupID(ctx context.Context, groupID string, limit, offset int) ([]*entity.Expense, error) {
	query := `
		SELECT` + expenseColumns + `
		FROM expenses
		WHERE group_id = ? AND is_active = 1
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, groupID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// ListForExport retrieves the group's active expenses within the optional
// date bounds, oldest first
func (r *ExpenseRepository) ListForExport(ctx context.Context, groupID string, start, end *time.Time) ([]*entity.Expense, error) {
	query := `SELECT` + expenseColumns + `FROM expenses WHERE group_id = ? AND is_active = 1`
	args := []interface{}{groupID}

	if start != nil {
		query += ` AND created_at >= ?`
		args = append(args, *start)
	}
	if end != nil {
		query += ` AND created_at <= ?`
		args = append(args, *end)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list expenses for export", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("list expenses for export: %w", err)
	}
	defer rows.Close()

	return collectExpenses(rows)
}

// UpdateStatus sets the expense status
func (r *ExpenseRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	query := `UPDATE expenses SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to update expense status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("update expense status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	return nil
}

// SetApproval records an approval decision. Empty approvedBy means a system
// (auto) approval.
func (r *ExpenseRepository) SetApproval(ctx context.Context, id string, approvedBy string, approvalType string, approvedAt time.Time) error {
	status := entity.StatusApproved
	if approvedBy == "" {
		status = entity.StatusAutoApproved
	}
	query := `
		UPDATE expenses
		SET status = ?, approved_by = ?, approval_type = ?, approved_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, status, approvedBy, approvalType, approvedAt, id)
	if err != nil {
		r.logger.Error("Failed to set approval", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("set approval: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	return nil
}

// SetRejection marks the expense rejected with the reviewer and reason
func (r *ExpenseRepository) SetRejection(ctx context.Context, id string, rejectedBy string, reason string) error {
	query := `
		UPDATE expenses
		SET status = ?, approved_by = ?, rejection_reason = ?,
			approved_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query, entity.StatusRejected, rejectedBy, reason, id)
	if err != nil {
		r.logger.Error("Failed to set rejection", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("set rejection: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: expense %s", entity.ErrNotFound, id)
	}
	return nil
}

// CountByGroup counts the group's active expenses
func (r *ExpenseRepository) CountByGroup(ctx context.Context, groupID string) (int, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE group_id = ? AND is_active = 1`, groupID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

// CountByGroupAndStatus counts the group's active expenses in one status
func (r *ExpenseRepository) CountByGroupAndStatus(ctx context.Context, groupID, status string) (int, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE group_id = ? AND status = ? AND is_active = 1`,
		groupID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expenses by status: %w", err)
	}
	return n, nil
}

// CountAutoApproved counts active expenses cleared by an auto-approval rule
func (r *ExpenseRepository) CountAutoApproved(ctx context.Context, groupID string) (int, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE group_id = ? AND is_active = 1 AND approval_type IN `+autoApprovalTypes,
		groupID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count auto-approved expenses: %w", err)
	}
	return n, nil
}

// SumByGroup sums the total amounts of the group's active expenses
func (r *ExpenseRepository) SumByGroup(ctx context.Context, groupID string) (decimal.Decimal, error) {
	var sum sql.NullString
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT CAST(COALESCE(SUM(CAST(total_amount AS REAL)), 0) AS TEXT)
		 FROM expenses WHERE group_id = ? AND is_active = 1`, groupID).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	d, err := scanDecimal(sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse expense sum: %w", err)
	}
	return d.Round(2), nil
}

// HasSimilarApproved reports whether a matching recurring pattern exists
func (r *ExpenseRepository) HasSimilarApproved(ctx context.Context, groupID, payerID, titlePrefix string, low, high decimal.Decimal, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM expenses
			WHERE group_id = ?
				AND paid_by_user_id = ?
				AND title LIKE ?
				AND CAST(total_amount AS REAL) BETWEEN ? AND ?
				AND status IN ('auto_approved', 'approved', 'pending', 'partial', 'settled')
				AND created_at >= ?
				AND is_active = 1
		)
	`

	low = low.Round(2)
	high = high.Round(2)
	var exists bool
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query,
		groupID, payerID, "%"+titlePrefix+"%", low.InexactFloat64(), high.InexactFloat64(), since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check similar expenses: %w", err)
	}
	return exists, nil
}

func scanExpense(row *sql.Row) (*entity.Expense, error) {
	var e entity.Expense
	var totalAmount string
	var description, approvedBy, approvalType, rejectionReason sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&e.ID, &e.GroupID, &e.PaidByUserID, &e.Title, &description, &totalAmount,
		&e.Currency, &e.SplitType, &e.Status, &e.HasReceipt, &approvedBy, &approvedAt,
		&approvalType, &rejectionReason, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return fillExpense(&e, totalAmount, description, approvedBy, approvalType, rejectionReason, approvedAt)
}

func collectExpenses(rows *sql.Rows) ([]*entity.Expense, error) {
	var expenses []*entity.Expense
	for rows.Next() {
		var e entity.Expense
		var totalAmount string
		var description, approvedBy, approvalType, rejectionReason sql.NullString
		var approvedAt sql.NullTime

		err := rows.Scan(
			&e.ID, &e.GroupID, &e.PaidByUserID, &e.Title, &description, &totalAmount,
			&e.Currency, &e.SplitType, &e.Status, &e.HasReceipt, &approvedBy, &approvedAt,
			&approvalType, &rejectionReason, &e.IsActive, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expense, err := fillExpense(&e, totalAmount, description, approvedBy, approvalType, rejectionReason, approvedAt)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func fillExpense(e *entity.Expense, totalAmount string, description, approvedBy, approvalType, rejectionReason sql.NullString, approvedAt sql.NullTime) (*entity.Expense, error) {
	amount, err := decimal.NewFromString(totalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	e.TotalAmount = amount
	e.Description = description.String
	e.ApprovedBy = approvedBy.String
	e.ApprovalType = approvalType.String
	e.RejectionReason = rejectionReason.String
	if approvedAt.Valid {
		e.ApprovedAt = &approvedAt.Time
	}
	return e, nil
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
