package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

// QueueRepository implements port.QueueRepository over SQLite
type QueueRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewQueueRepository creates a new approval queue repository
func NewQueueRepository(db *sql.DB, logger *zap.Logger) port.QueueRepository {
	return &QueueRepository{
		db:     db,
		logger: logger,
	}
}

// Enqueue inserts a queue entry for an expense awaiting review
func (r *QueueRepository) Enqueue(ctx context.Context, entry *entity.ApprovalQueueEntry) error {
	query := `
		INSERT INTO approval_queue (group_id, expense_id, priority, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		entry.GroupID, entry.ExpenseID, entry.Priority, entry.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to enqueue expense",
			zap.String("expense_id", entry.ExpenseID), zap.Error(err))
		return fmt.Errorf("enqueue expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get queue entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// GetByExpenseID retrieves the queue entry of one expense
func (r *QueueRepository) GetByExpenseID(ctx context.Context, expenseID string) (*entity.ApprovalQueueEntry, error) {
	query := `
		SELECT id, group_id, expense_id, priority, created_at
		FROM approval_queue
		WHERE expense_id = ?
	`

	var e entity.ApprovalQueueEntry
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, expenseID).Scan(
		&e.ID, &e.GroupID, &e.ExpenseID, &e.Priority, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: queue entry for expense %s", entity.ErrNotFound, expenseID)
	}
	if err != nil {
		r.logger.Error("Failed to get queue entry", zap.String("expense_id", expenseID), zap.Error(err))
		return nil, fmt.Errorf("get queue entry: %w", err)
	}
	return &e, nil
}

// GetByGroupID retrieves the group's queue, most urgent first
func (r *QueueRepository) GetByGroupID(ctx context.Context, groupID string) ([]*entity.ApprovalQueueEntry, error) {
	query := `
		SELECT id, group_id, expense_id, priority, created_at
		FROM approval_queue
		WHERE group_id = ?
		ORDER BY priority DESC, created_at ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, groupID)
	if err != nil {
		r.logger.Error("Failed to list queue", zap.String("group_id", groupID), zap.Error(err))
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var entries []*entity.ApprovalQueueEntry
	for rows.Next() {
		var e entity.ApprovalQueueEntry
		if err := rows.Scan(&e.ID, &e.GroupID, &e.ExpenseID, &e.Priority, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// CountByGroupID counts the group's queued entries
func (r *QueueRepository) CountByGroupID(ctx context.Context, groupID string) (int, error) {
	var n int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM approval_queue WHERE group_id = ?`, groupID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count queue entries: %w", err)
	}
	return n, nil
}

// PendingGroups lists the groups that have queued entries
func (r *QueueRepository) PendingGroups(ctx context.Context) ([]string, error) {
	rows, err := getExecutor(ctx, r.db).QueryContext(ctx,
		`SELECT DISTINCT group_id FROM approval_queue ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("list pending groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var groupID string
		if err := rows.Scan(&groupID); err != nil {
			return nil, fmt.Errorf("scan pending group: %w", err)
		}
		groups = append(groups, groupID)
	}
	return groups, rows.Err()
}

// Remove deletes the queue entry of an expense. Removing an absent entry is
// not an error.
func (r *QueueRepository) Remove(ctx context.Context, expenseID string) error {
	_, err := getExecutor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM approval_queue WHERE expense_id = ?`, expenseID)
	if err != nil {
		r.logger.Error("Failed to remove queue entry", zap.String("expense_id", expenseID), zap.Error(err))
		return fmt.Errorf("remove queue entry: %w", err)
	}
	return nil
}

// Verify interface compliance
var _ port.QueueRepository = (*QueueRepository)(nil)
