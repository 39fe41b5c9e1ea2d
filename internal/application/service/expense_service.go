package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
	"github.com/gota-app/expense-ledger/internal/domain/event"
	"github.com/gota-app/expense-ledger/internal/domain/lifecycle"
	"github.com/gota-app/expense-ledger/internal/domain/split"
	"github.com/gota-app/expense-ledger/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// CreateExpenseInput carries everything needed to record a new expense.
// ParticipantUserIDs nil means "all active group members".
type CreateExpenseInput struct {
	GroupID            string
	PaidByUserID       string
	Title              string
	Description        string
	TotalAmount        decimal.Decimal
	Currency           string
	SplitType          string
	HasReceipt         bool
	ParticipantUserIDs []string
	SplitPercentages   []float64
	SplitAmounts       []decimal.Decimal
}

// ExpenseService manages expense creation and payment tracking
type ExpenseService interface {
	CreateExpense(ctx context.Context, input CreateExpenseInput) (*entity.Expense, *ApprovalResult, error)
	GetExpense(ctx context.Context, id string) (*entity.Expense, []*entity.ExpenseParticipant, error)
	ListGroupExpenses(ctx context.Context, groupID string, limit, offset int) ([]*entity.Expense, error)
	SettleParticipant(ctx context.Context, expenseID, userID string, amount *decimal.Decimal) (*entity.ExpenseParticipant, error)
	RefreshStatus(ctx context.Context, expenseID string) (*entity.Expense, error)
}

type expenseServiceImpl struct {
	expenseRepo     port.ExpenseRepository
	participantRepo port.ParticipantRepository
	membership      port.MembershipProvider
	approval        ApprovalEvaluator
	txManager       port.TransactionManager
	notifier        port.Notifier
	logger          Logger
}

// ApprovalEvaluator is the slice of ApprovalService that expense creation
// needs. Evaluate must be safe to call inside an open transaction context.
type ApprovalEvaluator interface {
	Evaluate(ctx context.Context, expense *entity.Expense) (*ApprovalResult, error)
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	participantRepo port.ParticipantRepository,
	membership port.MembershipProvider,
	approval ApprovalEvaluator,
	txManager port.TransactionManager,
	notifier port.Notifier,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo:     expenseRepo,
		participantRepo: participantRepo,
		membership:      membership,
		approval:        approval,
		txManager:       txManager,
		notifier:        notifier,
		logger:          logger,
	}
}

// CreateExpense validates the request, splits the amount, persists the expense
// with its participant rows, and runs approval evaluation, all in one
// transaction. The payer's own share is recorded as already paid.
func (s *expenseServiceImpl) CreateExpense(ctx context.Context, input CreateExpenseInput) (*entity.Expense, *ApprovalResult, error) {
	if err := s.validateInput(&input); err != nil {
		return nil, nil, err
	}

	ok, err := s.membership.IsActiveMember(ctx, input.GroupID, input.PaidByUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("check payer membership: %w", err)
	}
	if !ok {
		return nil, nil, fmt.Errorf("%w: payer %s is not an active member of group %s", entity.ErrNotMember, input.PaidByUserID, input.GroupID)
	}

	participantIDs, err := s.resolveParticipants(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	amounts, err := s.splitAmounts(input, len(participantIDs))
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	expense := &entity.Expense{
		ID:           uuid.NewString(),
		GroupID:      input.GroupID,
		PaidByUserID: input.PaidByUserID,
		Title:        input.Title,
		Description:  input.Description,
		TotalAmount:  input.TotalAmount,
		Currency:     input.Currency,
		SplitType:    input.SplitType,
		Status:       entity.StatusPendingApproval,
		HasReceipt:   input.HasReceipt,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var result *ApprovalResult
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}

		for i, userID := range participantIDs {
			p := &entity.ExpenseParticipant{
				ID:         uuid.NewString(),
				ExpenseID:  expense.ID,
				UserID:     userID,
				AmountOwed: amounts[i],
				AmountPaid: decimal.Zero,
				Status:     entity.ParticipantPending,
				IsActive:   true,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			// The payer has already covered their own share.
			if userID == input.PaidByUserID {
				p.AmountPaid = amounts[i]
				p.Status = entity.ParticipantPaid
			}
			if err := s.participantRepo.Create(txCtx, p); err != nil {
				return fmt.Errorf("create participant: %w", err)
			}
		}

		result, err = s.approval.Evaluate(txCtx, expense)
		if err != nil {
			return fmt.Errorf("evaluate approval: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create expense", "error", err, "group_id", input.GroupID)
		return nil, nil, err
	}

	s.logger.Info("Expense created", "id", expense.ID, "group_id", expense.GroupID,
		"participants", len(participantIDs), "status", expense.Status)

	evt := event.NewExpenseUpdate(expense.GroupID, expense.ID, map[string]any{
		"action": "created",
		"status": expense.Status,
		"amount": expense.TotalAmount.StringFixed(2),
	})
	s.notifier.NotifyGroup(ctx, expense.GroupID, evt)

	return expense, result, nil
}

// GetExpense returns an expense with its active participants.
func (s *expenseServiceImpl) GetExpense(ctx context.Context, id string) (*entity.Expense, []*entity.ExpenseParticipant, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.participantRepo.GetByExpenseID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load participants: %w", err)
	}
	return expense, participants, nil
}

// ListGroupExpenses returns a page of the group's active expenses, newest first.
func (s *expenseServiceImpl) ListGroupExpenses(ctx context.Context, groupID string, limit, offset int) ([]*entity.Expense, error) {
	expenses, err := s.expenseRepo.GetByGroupID(ctx, groupID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "group_id", groupID)
		return nil, err
	}
	return expenses, nil
}

// SettleParticipant records a payment against a participant's share. A nil
// amount settles the full remaining balance. The expense status is recomputed
// inside the same transaction as the payment write.
func (s *expenseServiceImpl) SettleParticipant(ctx context.Context, expenseID, userID string, amount *decimal.Decimal) (*entity.ExpenseParticipant, error) {
	var settled *entity.ExpenseParticipant
	var expense *entity.Expense

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = s.expenseRepo.GetByID(txCtx, expenseID)
		if err != nil {
			return err
		}
		if !expense.IsApproved() {
			return fmt.Errorf("%w: cannot settle expense in status %s", entity.ErrInvalidState, expense.Status)
		}

		participants, err := s.participantRepo.GetByExpenseID(txCtx, expenseID)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}

		var target *entity.ExpenseParticipant
		for _, p := range participants {
			if p.UserID == userID && p.IsActive {
				target = p
				break
			}
		}
		if target == nil {
			return fmt.Errorf("%w: user %s is not a participant of expense %s", entity.ErrNotFound, userID, expenseID)
		}

		remaining := target.Remaining()
		pay := remaining
		if amount != nil {
			pay = *amount
		}
		if !pay.IsPositive() {
			return fmt.Errorf("%w: settlement amount must be positive", entity.ErrInvalidInput)
		}
		if pay.GreaterThan(remaining) {
			return fmt.Errorf("%w: cannot settle more than owed, maximum %s", entity.ErrInvalidInput, remaining.StringFixed(2))
		}

		target.AmountPaid = target.AmountPaid.Add(pay)
		var paidAt *time.Time
		if target.AmountPaid.GreaterThanOrEqual(target.AmountOwed) {
			target.Status = entity.ParticipantPaid
			now := time.Now()
			paidAt = &now
		}
		if err := s.participantRepo.UpdatePayment(txCtx, target.ID, target.AmountPaid, target.Status, paidAt); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		if next, changed := lifecycle.Advance(expense.Status, participants); changed {
			if err := s.expenseRepo.UpdateStatus(txCtx, expense.ID, next); err != nil {
				return fmt.Errorf("update expense status: %w", err)
			}
			expense.Status = next
		}

		settled = target
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to settle participant", "error", err, "expense_id", expenseID, "user_id", userID)
		return nil, err
	}

	s.logger.Info("Participant settled", "expense_id", expenseID, "user_id", userID,
		"amount_paid", settled.AmountPaid.StringFixed(2), "expense_status", expense.Status)

	evt := event.NewExpenseUpdate(expense.GroupID, expense.ID, map[string]any{
		"action":  "settled",
		"user_id": userID,
		"status":  expense.Status,
	})
	s.notifier.NotifyGroup(ctx, expense.GroupID, evt)

	return settled, nil
}

// RefreshStatus force-recomputes the expense status from its participant sums,
// including reopening a settled expense whose payments were corrected.
func (s *expenseServiceImpl) RefreshStatus(ctx context.Context, expenseID string) (*entity.Expense, error) {
	var expense *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		expense, err = s.expenseRepo.GetByID(txCtx, expenseID)
		if err != nil {
			return err
		}
		participants, err := s.participantRepo.GetByExpenseID(txCtx, expenseID)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		if next, changed := lifecycle.Refresh(expense.Status, participants); changed {
			if err := s.expenseRepo.UpdateStatus(txCtx, expense.ID, next); err != nil {
				return fmt.Errorf("update expense status: %w", err)
			}
			expense.Status = next
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to refresh expense status", "error", err, "expense_id", expenseID)
		return nil, err
	}
	return expense, nil
}

func (s *expenseServiceImpl) validateInput(input *CreateExpenseInput) error {
	if input.Title == "" {
		return fmt.Errorf("%w: title is required", entity.ErrInvalidInput)
	}
	if !input.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount must be positive", entity.ErrInvalidInput)
	}
	if input.SplitType == "" {
		input.SplitType = entity.SplitEqual
	}
	if !entity.ValidSplitType(input.SplitType) {
		return fmt.Errorf("%w: invalid split type %q", entity.ErrInvalidInput, input.SplitType)
	}
	if input.Currency == "" {
		input.Currency = "USD"
	}
	if err := utils.ValidateCurrency(input.Currency); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}
	input.Title = utils.SanitizeString(input.Title)
	input.Description = utils.SanitizeString(input.Description)
	return nil
}

// resolveParticipants defaults to all active members and validates that every
// explicit participant belongs to the group.
func (s *expenseServiceImpl) resolveParticipants(ctx context.Context, input CreateExpenseInput) ([]string, error) {
	if input.ParticipantUserIDs == nil {
		members, err := s.membership.ActiveMembers(ctx, input.GroupID)
		if err != nil {
			return nil, fmt.Errorf("load group members: %w", err)
		}
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.UserID)
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("%w: group has no active members", entity.ErrInvalidInput)
		}
		return ids, nil
	}

	if len(input.ParticipantUserIDs) == 0 {
		return nil, fmt.Errorf("%w: participant list is empty", entity.ErrInvalidInput)
	}
	for _, userID := range input.ParticipantUserIDs {
		ok, err := s.membership.IsActiveMember(ctx, input.GroupID, userID)
		if err != nil {
			return nil, fmt.Errorf("check participant membership: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: user %s is not an active member of group %s", entity.ErrNotMember, userID, input.GroupID)
		}
	}
	return input.ParticipantUserIDs, nil
}

func (s *expenseServiceImpl) splitAmounts(input CreateExpenseInput, n int) ([]decimal.Decimal, error) {
	switch input.SplitType {
	case entity.SplitEqual:
		return split.Equal(input.TotalAmount, n)
	case entity.SplitPercentage:
		if len(input.SplitPercentages) != n {
			return nil, fmt.Errorf("%w: percentage split requires one percentage per participant", entity.ErrInvalidInput)
		}
		return split.Percentage(input.TotalAmount, input.SplitPercentages)
	case entity.SplitCustom:
		if len(input.SplitAmounts) != n {
			return nil, fmt.Errorf("%w: custom split requires one amount per participant", entity.ErrInvalidInput)
		}
		return split.Custom(input.TotalAmount, input.SplitAmounts)
	default:
		return nil, fmt.Errorf("%w: invalid split type %q", entity.ErrInvalidInput, input.SplitType)
	}
}
