package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
	"github.com/gota-app/expense-ledger/internal/domain/event"
	"github.com/gota-app/expense-ledger/internal/domain/lifecycle"
	"github.com/gota-app/expense-ledger/internal/domain/trust"
	"github.com/gota-app/expense-ledger/pkg/utils"
)

// recurringWindow bounds how far back the recurring-expense heuristic looks.
const recurringWindow = 30 * 24 * time.Hour

// titlePrefixLen is how many leading characters of the title must match for
// two expenses to count as the same recurring pattern.
const titlePrefixLen = 10

var (
	recurringLow  = decimal.RequireFromString("0.8")
	recurringHigh = decimal.RequireFromString("1.2")
	priorityTier1 = decimal.NewFromInt(100)
	priorityTier2 = decimal.NewFromInt(200)
)

// ApprovalResult reports the outcome of auto-approval evaluation.
type ApprovalResult struct {
	AutoApproved bool   `json:"auto_approved"`
	Reason       string `json:"reason"`
	Priority     int    `json:"priority,omitempty"`
	Details      string `json:"details,omitempty"`
}

// PendingApproval pairs a queue entry with its expense for review listings.
type PendingApproval struct {
	Expense  *entity.Expense `json:"expense"`
	Priority int             `json:"priority"`
	QueuedAt time.Time       `json:"queued_at"`
}

// ApprovalStats summarizes a group's approval activity.
type ApprovalStats struct {
	TotalExpenses     int     `json:"total_expenses"`
	AutoApprovedCount int     `json:"auto_approved_count"`
	AutoApprovalRate  float64 `json:"auto_approval_rate"`
	PendingApprovals  int     `json:"pending_approvals"`
}

// ApprovalService runs the auto-approval rules and the manual review flow
type ApprovalService interface {
	ApprovalEvaluator
	Approve(ctx context.Context, groupID, expenseID, approverID string) (*entity.Expense, error)
	Reject(ctx context.Context, groupID, expenseID, approverID, reason string) (*entity.Expense, error)
	BatchApprove(ctx context.Context, groupID string, expenseIDs []string, approverID string) (int, error)
	PendingApprovals(ctx context.Context, groupID string, limit int) ([]*PendingApproval, error)
	ApprovalStats(ctx context.Context, groupID string) (*ApprovalStats, error)
	GetSettings(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error)
	UpdateSettings(ctx context.Context, actorID string, settings *entity.GroupApprovalSettings) error
}

type approvalServiceImpl struct {
	expenseRepo     port.ExpenseRepository
	participantRepo port.ParticipantRepository
	settingsRepo    port.SettingsRepository
	trustRepo       port.TrustRepository
	queueRepo       port.QueueRepository
	membership      port.MembershipProvider
	txManager       port.TransactionManager
	notifier        port.Notifier
	logger          Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	expenseRepo port.ExpenseRepository,
	participantRepo port.ParticipantRepository,
	settingsRepo port.SettingsRepository,
	trustRepo port.TrustRepository,
	queueRepo port.QueueRepository,
	membership port.MembershipProvider,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		expenseRepo:     expenseRepo,
		participantRepo: participantRepo,
		settingsRepo:    settingsRepo,
		trustRepo:       trustRepo,
		queueRepo:       queueRepo,
		membership:      membership,
		txManager:       txManager,
		notifier:        notifier,
		logger:          logger,
	}
}

// Evaluate applies the auto-approval rules to a freshly created expense and
// either approves it (moving it into the payment phase) or queues it for
// manual review. It must run inside the caller's transaction context.
//
// Rule order: group amount limit, member trust limit, receipt limit,
// recurring pattern, then queue with a computed priority.
func (s *approvalServiceImpl) Evaluate(ctx context.Context, expense *entity.Expense) (*ApprovalResult, error) {
	settings, err := s.ensureSettings(ctx, expense.GroupID)
	if err != nil {
		return nil, err
	}
	memberTrust, err := s.ensureTrust(ctx, expense.GroupID, expense.PaidByUserID)
	if err != nil {
		return nil, err
	}

	amount := expense.TotalAmount

	if amount.LessThanOrEqual(settings.AutoApproveLimit) {
		result := &ApprovalResult{
			AutoApproved: true,
			Reason:       entity.ApprovalAutoAmount,
			Details:      fmt.Sprintf("amount %s under group limit %s", amount.StringFixed(2), settings.AutoApproveLimit.StringFixed(2)),
		}
		return result, s.autoApprove(ctx, expense, memberTrust, result.Reason)
	}

	if memberTrust.AutoApproveLimit.IsPositive() && amount.LessThanOrEqual(memberTrust.AutoApproveLimit) {
		result := &ApprovalResult{
			AutoApproved: true,
			Reason:       entity.ApprovalAutoTrust,
			Details:      fmt.Sprintf("trusted member under personal limit %s", memberTrust.AutoApproveLimit.StringFixed(2)),
		}
		return result, s.autoApprove(ctx, expense, memberTrust, result.Reason)
	}

	if expense.HasReceipt && amount.LessThanOrEqual(settings.ReceiptAutoApproveLimit) {
		result := &ApprovalResult{
			AutoApproved: true,
			Reason:       entity.ApprovalAutoReceipt,
			Details:      fmt.Sprintf("has receipt and amount under receipt limit %s", settings.ReceiptAutoApproveLimit.StringFixed(2)),
		}
		return result, s.autoApprove(ctx, expense, memberTrust, result.Reason)
	}

	if settings.AutoApproveRecurring {
		recurring, err := s.isRecurring(ctx, expense)
		if err != nil {
			return nil, err
		}
		if recurring {
			result := &ApprovalResult{
				AutoApproved: true,
				Reason:       entity.ApprovalAutoRecurring,
				Details:      "similar expense pattern previously approved",
			}
			return result, s.autoApprove(ctx, expense, memberTrust, result.Reason)
		}
	}

	priority := queuePriority(expense, settings, memberTrust)
	if err := s.queueRepo.Enqueue(ctx, &entity.ApprovalQueueEntry{
		GroupID:   expense.GroupID,
		ExpenseID: expense.ID,
		Priority:  priority,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("enqueue for approval: %w", err)
	}

	if !settings.BatchNotifications {
		evt := event.NewExpenseUpdate(expense.GroupID, expense.ID, map[string]any{
			"action":   "approval_needed",
			"priority": priority,
			"amount":   expense.TotalAmount.StringFixed(2),
		})
		s.notifier.NotifyGroup(ctx, expense.GroupID, evt)
	}

	s.logger.Info("Expense queued for approval", "expense_id", expense.ID, "priority", priority)
	return &ApprovalResult{
		AutoApproved: false,
		Reason:       "manual_approval_required",
		Priority:     priority,
		Details:      fmt.Sprintf("amount %s requires manual approval", amount.StringFixed(2)),
	}, nil
}

// Approve manually approves a queued expense. Only group admins may approve.
func (s *approvalServiceImpl) Approve(ctx context.Context, groupID, expenseID, approverID string) (*entity.Expense, error) {
	var expense *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = s.loadForDecision(txCtx, groupID, expenseID, approverID)
		if err != nil {
			return err
		}
		return s.decide(txCtx, expense, approverID, entity.ApprovalManual)
	})
	if err != nil {
		s.logger.Error("Failed to approve expense", "error", err, "expense_id", expenseID)
		return nil, err
	}

	s.logger.Info("Expense approved", "expense_id", expenseID, "approver", approverID)
	s.notifyDecision(ctx, expense, "approved")
	return expense, nil
}

// Reject rejects a queued expense with a reason. Rejection is terminal.
func (s *approvalServiceImpl) Reject(ctx context.Context, groupID, expenseID, approverID, reason string) (*entity.Expense, error) {
	var expense *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = s.loadForDecision(txCtx, groupID, expenseID, approverID)
		if err != nil {
			return err
		}

		if err := s.expenseRepo.SetRejection(txCtx, expense.ID, approverID, reason); err != nil {
			return fmt.Errorf("set rejection: %w", err)
		}
		expense.Status = entity.StatusRejected
		expense.RejectionReason = reason

		if err := s.queueRepo.Remove(txCtx, expense.ID); err != nil {
			return fmt.Errorf("remove queue entry: %w", err)
		}
		return s.recordOutcome(txCtx, expense.GroupID, expense.PaidByUserID, false)
	})
	if err != nil {
		s.logger.Error("Failed to reject expense", "error", err, "expense_id", expenseID)
		return nil, err
	}

	s.logger.Info("Expense rejected", "expense_id", expenseID, "approver", approverID, "reason", reason)
	s.notifyDecision(ctx, expense, "rejected")
	return expense, nil
}

// BatchApprove approves every listed expense that is still pending approval in
// the group. IDs that are missing, foreign, or already decided are skipped;
// the returned count covers only actual approvals.
func (s *approvalServiceImpl) BatchApprove(ctx context.Context, groupID string, expenseIDs []string, approverID string) (int, error) {
	isAdmin, err := s.membership.IsAdmin(ctx, groupID, approverID)
	if err != nil {
		return 0, fmt.Errorf("check approver role: %w", err)
	}
	if !isAdmin {
		return 0, fmt.Errorf("%w: user %s cannot approve expenses in group %s", entity.ErrForbidden, approverID, groupID)
	}

	approved := 0
	var decided []*entity.Expense
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, id := range expenseIDs {
			expense, err := s.expenseRepo.GetByID(txCtx, id)
			if err != nil {
				if errors.Is(err, entity.ErrNotFound) {
					continue
				}
				return err
			}
			if expense.GroupID != groupID || !expense.NeedsApproval() {
				continue
			}
			if err := s.decide(txCtx, expense, approverID, entity.ApprovalBatch); err != nil {
				return err
			}
			decided = append(decided, expense)
			approved++
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to batch approve", "error", err, "group_id", groupID)
		return 0, err
	}

	s.logger.Info("Batch approved expenses", "group_id", groupID, "count", approved, "approver", approverID)
	for _, expense := range decided {
		s.notifyDecision(ctx, expense, "approved")
	}
	return approved, nil
}

// PendingApprovals lists queued expenses ordered by priority, most urgent first.
func (s *approvalServiceImpl) PendingApprovals(ctx context.Context, groupID string, limit int) ([]*PendingApproval, error) {
	entries, err := s.queueRepo.GetByGroupID(ctx, groupID)
	if err != nil {
		s.logger.Error("Failed to list approval queue", "error", err, "group_id", groupID)
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	pending := make([]*PendingApproval, 0, len(entries))
	for _, entry := range entries {
		expense, err := s.expenseRepo.GetByID(ctx, entry.ExpenseID)
		if err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				continue
			}
			return nil, err
		}
		pending = append(pending, &PendingApproval{
			Expense:  expense,
			Priority: entry.Priority,
			QueuedAt: entry.CreatedAt,
		})
	}
	return pending, nil
}

// ApprovalStats returns approval counts and the auto-approval rate in percent.
func (s *approvalServiceImpl) ApprovalStats(ctx context.Context, groupID string) (*ApprovalStats, error) {
	total, err := s.expenseRepo.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	autoApproved, err := s.expenseRepo.CountAutoApproved(ctx, groupID)
	if err != nil {
		return nil, err
	}
	queued, err := s.queueRepo.CountByGroupID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	stats := &ApprovalStats{
		TotalExpenses:     total,
		AutoApprovedCount: autoApproved,
		PendingApprovals:  queued,
	}
	if total > 0 {
		stats.AutoApprovalRate = float64(autoApproved) / float64(total) * 100
	}
	return stats, nil
}

// GetSettings returns the group's approval settings, creating defaults lazily.
func (s *approvalServiceImpl) GetSettings(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error) {
	return s.ensureSettings(ctx, groupID)
}

// UpdateSettings replaces the group's approval thresholds. Admin only.
func (s *approvalServiceImpl) UpdateSettings(ctx context.Context, actorID string, settings *entity.GroupApprovalSettings) error {
	isAdmin, err := s.membership.IsAdmin(ctx, settings.GroupID, actorID)
	if err != nil {
		return fmt.Errorf("check actor role: %w", err)
	}
	if !isAdmin {
		return fmt.Errorf("%w: user %s cannot change settings of group %s", entity.ErrForbidden, actorID, settings.GroupID)
	}
	if settings.AutoApproveLimit.IsNegative() || settings.ReceiptAutoApproveLimit.IsNegative() || settings.RequireReceiptAbove.IsNegative() {
		return fmt.Errorf("%w: approval limits must not be negative", entity.ErrInvalidInput)
	}
	if settings.NotificationTime != "" {
		if err := utils.ValidateClockTime(settings.NotificationTime); err != nil {
			return fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
		}
	}
	if _, err := s.ensureSettings(ctx, settings.GroupID); err != nil {
		return err
	}
	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		s.logger.Error("Failed to update approval settings", "error", err, "group_id", settings.GroupID)
		return err
	}
	s.logger.Info("Approval settings updated", "group_id", settings.GroupID)
	return nil
}

// loadForDecision fetches the expense and checks group, status, and approver
// role for a manual decision.
func (s *approvalServiceImpl) loadForDecision(ctx context.Context, groupID, expenseID, approverID string) (*entity.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.GroupID != groupID {
		return nil, fmt.Errorf("%w: expense %s not in group %s", entity.ErrNotFound, expenseID, groupID)
	}
	if !expense.NeedsApproval() {
		return nil, fmt.Errorf("%w: expense is %s, not pending approval", entity.ErrInvalidState, expense.Status)
	}
	isAdmin, err := s.membership.IsAdmin(ctx, groupID, approverID)
	if err != nil {
		return nil, fmt.Errorf("check approver role: %w", err)
	}
	if !isAdmin {
		return nil, fmt.Errorf("%w: user %s cannot approve expenses in group %s", entity.ErrForbidden, approverID, groupID)
	}
	return expense, nil
}

// decide records a manual or batch approval, clears the queue entry, updates
// trust, and moves the expense into the payment phase.
func (s *approvalServiceImpl) decide(ctx context.Context, expense *entity.Expense, approverID, approvalType string) error {
	now := time.Now()
	if err := s.expenseRepo.SetApproval(ctx, expense.ID, approverID, approvalType, now); err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	expense.Status = entity.StatusApproved
	expense.ApprovedBy = approverID
	expense.ApprovedAt = &now
	expense.ApprovalType = approvalType

	if err := s.queueRepo.Remove(ctx, expense.ID); err != nil {
		return fmt.Errorf("remove queue entry: %w", err)
	}
	if err := s.recordOutcome(ctx, expense.GroupID, expense.PaidByUserID, true); err != nil {
		return err
	}
	return s.activate(ctx, expense)
}

// autoApprove records a system approval and moves the expense into the
// payment phase.
func (s *approvalServiceImpl) autoApprove(ctx context.Context, expense *entity.Expense, memberTrust *entity.GroupMemberTrust, reason string) error {
	now := time.Now()
	if err := s.expenseRepo.SetApproval(ctx, expense.ID, "", reason, now); err != nil {
		return fmt.Errorf("set approval: %w", err)
	}
	expense.Status = entity.StatusAutoApproved
	expense.ApprovedAt = &now
	expense.ApprovalType = reason

	trust.RecordOutcome(memberTrust, true, now)
	if err := s.trustRepo.Update(ctx, memberTrust); err != nil {
		return fmt.Errorf("update trust: %w", err)
	}

	s.logger.Info("Expense auto-approved", "expense_id", expense.ID, "reason", reason)
	return s.activate(ctx, expense)
}

// activate advances an approved expense into the payment-tracking statuses.
func (s *approvalServiceImpl) activate(ctx context.Context, expense *entity.Expense) error {
	participants, err := s.participantRepo.GetByExpenseID(ctx, expense.ID)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	if next, changed := lifecycle.Advance(expense.Status, participants); changed {
		if err := s.expenseRepo.UpdateStatus(ctx, expense.ID, next); err != nil {
			return fmt.Errorf("update expense status: %w", err)
		}
		expense.Status = next
	}
	return nil
}

// recordOutcome updates the payer's trust counters and re-derives their level.
func (s *approvalServiceImpl) recordOutcome(ctx context.Context, groupID, userID string, approved bool) error {
	memberTrust, err := s.ensureTrust(ctx, groupID, userID)
	if err != nil {
		return err
	}
	trust.RecordOutcome(memberTrust, approved, time.Now())
	if err := s.trustRepo.Update(ctx, memberTrust); err != nil {
		return fmt.Errorf("update trust: %w", err)
	}
	return nil
}

// ensureSettings loads the group's settings, creating the defaults on first
// access. Lazy creation never fails the caller: a concurrent insert resolves
// by re-reading the winner's row.
func (s *approvalServiceImpl) ensureSettings(ctx context.Context, groupID string) (*entity.GroupApprovalSettings, error) {
	settings, err := s.settingsRepo.GetByGroupID(ctx, groupID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	settings = entity.DefaultApprovalSettings(groupID)
	if err := s.settingsRepo.Create(ctx, settings); err != nil {
		if existing, readErr := s.settingsRepo.GetByGroupID(ctx, groupID); readErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return settings, nil
}

// ensureTrust loads the member's trust record, creating defaults on first
// access, same race policy as ensureSettings.
func (s *approvalServiceImpl) ensureTrust(ctx context.Context, groupID, userID string) (*entity.GroupMemberTrust, error) {
	rec, err := s.trustRepo.GetByGroupAndUser(ctx, groupID, userID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, entity.ErrNotFound) {
		return nil, fmt.Errorf("load trust: %w", err)
	}

	rec = entity.DefaultMemberTrust(groupID, userID)
	if err := s.trustRepo.Create(ctx, rec); err != nil {
		if existing, readErr := s.trustRepo.GetByGroupAndUser(ctx, groupID, userID); readErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("create default trust: %w", err)
	}
	return rec, nil
}

// isRecurring checks whether the payer has a recently approved expense with a
// matching title prefix and an amount within ±20%.
func (s *approvalServiceImpl) isRecurring(ctx context.Context, expense *entity.Expense) (bool, error) {
	prefix := expense.Title
	if len(prefix) > titlePrefixLen {
		prefix = prefix[:titlePrefixLen]
	}
	low := expense.TotalAmount.Mul(recurringLow)
	high := expense.TotalAmount.Mul(recurringHigh)
	since := time.Now().Add(-recurringWindow)

	found, err := s.expenseRepo.HasSimilarApproved(ctx, expense.GroupID, expense.PaidByUserID, prefix, low, high, since)
	if err != nil {
		return false, fmt.Errorf("check recurring pattern: %w", err)
	}
	return found, nil
}

// queuePriority scores how urgently a queued expense needs review. Larger
// amounts and missing receipts raise it, established trust lowers it, and the
// floor is zero.
func queuePriority(expense *entity.Expense, settings *entity.GroupApprovalSettings, memberTrust *entity.GroupMemberTrust) int {
	priority := 0

	if expense.TotalAmount.GreaterThan(priorityTier1) {
		priority += 2
	}
	if expense.TotalAmount.GreaterThan(priorityTier2) {
		priority += 3
	}

	switch memberTrust.TrustLevel {
	case entity.TrustTrusted, entity.TrustCoAdmin:
		priority--
	case entity.TrustNew:
		priority++
	}

	if expense.TotalAmount.GreaterThan(settings.RequireReceiptAbove) && !expense.HasReceipt {
		priority += 2
	}

	if priority < 0 {
		priority = 0
	}
	return priority
}

func (s *approvalServiceImpl) notifyDecision(ctx context.Context, expense *entity.Expense, action string) {
	evt := event.NewExpenseUpdate(expense.GroupID, expense.ID, map[string]any{
		"action": action,
		"status": expense.Status,
	})
	s.notifier.NotifyGroup(ctx, expense.GroupID, evt)
	s.notifier.NotifyUser(ctx, expense.PaidByUserID, evt)
}
