package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// ParticipantRepository implements port.ParticipantRepository over SQLite
type ParticipantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *sql.DB, logger *zap.Logger) port.ParticipantRepository {
	return &ParticipantRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new participant row
func (r *ParticipantRepository) Create(ctx context.Context, p *entity.ExpenseParticipant) error {
	query := `
		INSERT INTO expense_participants (
			id, expense_id, user_id, amount_owed, amount_paid, status,
			is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		p.ID,
		p.ExpenseID,
		p.UserID,
		p.AmountOwed.StringFixed(2),
		p.AmountPaid.StringFixed(2),
		p.Status,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create participant", zap.Error(err),
			zap.String("expense_id", p.ExpenseID), zap.String("user_id", p.UserID))
		return fmt.Errorf("create participant: %w", err)
	}
	return nil
}

// GetByExpenseID retrieves all participant rows of an expense in insertion
// order, inactive rows included so callers can decide
func (r *ParticipantRepository) GetByExpenseID(ctx context.Context, expenseID string) ([]*entity.ExpenseParticipant, error) {
	query := `
		SELECT id, expense_id, user_id, amount_owed, amount_paid, status,
			is_active, created_at, updated_at
		FROM expense_participants
		WHERE expense_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, expenseID)
	if err != nil {
		r.logger.Error("Failed to list participants", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []*entity.ExpenseParticipant
	for rows.Next() {
		var p entity.ExpenseParticipant
		var owed, paid string

		err := rows.Scan(&p.ID, &p.ExpenseID, &p.UserID, &owed, &paid,
			&p.Status, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if p.AmountOwed, err = decimal.NewFromString(owed); err != nil {
			return nil, fmt.Errorf("parse amount owed: %w", err)
		}
		if p.AmountPaid, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("parse amount paid: %w", err)
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

// UpdatePayment writes the participant's payment progress
func (r *ParticipantRepository) UpdatePayment(ctx context.Context, id string, amountPaid decimal.Decimal, status string, paidAt *time.Time) error {
	query := `
		UPDATE expense_participants
		SET amount_paid = ?, status = ?, paid_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		amountPaid.StringFixed(2), status, paidAt, id)
	if err != nil {
		r.logger.Error("Failed to update payment", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("update payment: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: participant %s", entity.ErrNotFound, id)
	}
	return nil
}

// GetTotals sums the user's active shares across the group's active expenses
func (r *ParticipantRepository) GetTotals(ctx context.Context, groupID, userID string) (*port.ParticipantTotals, error) {
	query := `
		SELECT
			CAST(COALESCE(SUM(CAST(p.amount_owed AS REAL)), 0) AS TEXT),
			CAST(COALESCE(SUM(CAST(p.amount_paid AS REAL)), 0) AS TEXT),
			COUNT(p.id),
			COALESCE(SUM(CASE WHEN p.status = 'pending' THEN 1 ELSE 0 END), 0)
		FROM expense_participants p
		JOIN expenses e ON e.id = p.expense_id
		WHERE e.group_id = ? AND e.is_active = 1
			AND p.user_id = ? AND p.is_active = 1
	`

	var owed, paid sql.NullString
	totals := &port.ParticipantTotals{}
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, groupID, userID).Scan(
		&owed, &paid, &totals.ExpenseCount, &totals.PendingCount)
	if err != nil {
		r.logger.Error("Failed to get participant totals",
			zap.String("group_id", groupID), zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get participant totals: %w", err)
	}

	if totals.TotalOwed, err = scanDecimal(owed); err != nil {
		return nil, fmt.Errorf("parse total owed: %w", err)
	}
	if totals.TotalPaid, err = scanDecimal(paid); err != nil {
		return nil, fmt.Errorf("parse total paid: %w", err)
	}
	totals.TotalOwed = totals.TotalOwed.Round(2)
	totals.TotalPaid = totals.TotalPaid.Round(2)
	return totals, nil
}

// Verify interface compliance
var _ port.ParticipantRepository = (*ParticipantRepository)(nil)
