package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
	"github.com/gota-app/expense-ledger/internal/domain/ledger"
)

// LedgerService aggregates balances and plans settlements for a group
type LedgerService interface {
	UserBalance(ctx context.Context, groupID, userID string) (decimal.Decimal, error)
	GroupBalances(ctx context.Context, groupID string) ([]ledger.MemberBalance, error)
	GroupSummary(ctx context.Context, groupID, userID string) (*ledger.GroupSummary, error)
	SettlementPlan(ctx context.Context, groupID string) ([]ledger.Settlement, error)
}

type ledgerServiceImpl struct {
	expenseRepo     port.ExpenseRepository
	participantRepo port.ParticipantRepository
	membership      port.MembershipProvider
	logger          Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	expenseRepo port.ExpenseRepository,
	participantRepo port.ParticipantRepository,
	membership port.MembershipProvider,
	logger Logger,
) LedgerService {
	return &ledgerServiceImpl{
		expenseRepo:     expenseRepo,
		participantRepo: participantRepo,
		membership:      membership,
		logger:          logger,
	}
}

// UserBalance returns paid minus owed for one member across the group's
// active expenses. Positive means the group owes the user.
func (s *ledgerServiceImpl) UserBalance(ctx context.Context, groupID, userID string) (decimal.Decimal, error) {
	ok, err := s.membership.IsActiveMember(ctx, groupID, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: user %s is not an active member of group %s", entity.ErrNotMember, userID, groupID)
	}

	totals, err := s.participantRepo.GetTotals(ctx, groupID, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load participant totals: %w", err)
	}
	return totals.TotalPaid.Sub(totals.TotalOwed), nil
}

// GroupBalances returns one balance entry per active member, in membership
// order. Members with no expense history appear with a zero balance.
func (s *ledgerServiceImpl) GroupBalances(ctx context.Context, groupID string) ([]ledger.MemberBalance, error) {
	members, err := s.membership.ActiveMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load group members: %w", err)
	}

	balances := make([]ledger.MemberBalance, 0, len(members))
	for _, m := range members {
		totals, err := s.participantRepo.GetTotals(ctx, groupID, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("load participant totals: %w", err)
		}
		balances = append(balances, ledger.NewMemberBalance(m.UserID, totals.TotalPaid.Sub(totals.TotalOwed)))
	}
	return balances, nil
}

// GroupSummary returns expense counts and totals for the group, plus the
// user's own position when userID is non-empty.
func (s *ledgerServiceImpl) GroupSummary(ctx context.Context, groupID, userID string) (*ledger.GroupSummary, error) {
	total, err := s.expenseRepo.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	totalAmount, err := s.expenseRepo.SumByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	summary := &ledger.GroupSummary{
		TotalExpenses: total,
		TotalAmount:   totalAmount,
	}
	for status, dst := range map[string]*int{
		entity.StatusPending: &summary.PendingCount,
		entity.StatusPartial: &summary.PartialCount,
		entity.StatusSettled: &summary.SettledCount,
	} {
		n, err := s.expenseRepo.CountByGroupAndStatus(ctx, groupID, status)
		if err != nil {
			return nil, err
		}
		*dst = n
	}

	if userID != "" {
		totals, err := s.participantRepo.GetTotals(ctx, groupID, userID)
		if err != nil {
			return nil, fmt.Errorf("load participant totals: %w", err)
		}
		summary.User = &ledger.UserSummary{
			UserID:          userID,
			Balance:         totals.TotalPaid.Sub(totals.TotalOwed),
			ExpenseCount:    totals.ExpenseCount,
			TotalOwed:       totals.TotalOwed,
			TotalPaid:       totals.TotalPaid,
			PendingPayments: totals.PendingCount,
		}
	}
	return summary, nil
}

// SettlementPlan computes the pairwise transfers that zero out the group's
// balances using the greedy largest-creditor/largest-debtor matching.
func (s *ledgerServiceImpl) SettlementPlan(ctx context.Context, groupID string) ([]ledger.Settlement, error) {
	balances, err := s.GroupBalances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	plan := ledger.PlanSettlements(balances)
	s.logger.Info("Settlement plan computed", "group_id", groupID, "members", len(balances), "transfers", len(plan))
	return plan, nil
}
