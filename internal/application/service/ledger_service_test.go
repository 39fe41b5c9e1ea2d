package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
	"github.com/gota-app/expense-ledger/internal/domain/ledger"
)

// seedBalances loads one active expense with participant rows producing
// balances {u1: +30, u2: +10, u3: -40}.
func seedBalances(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.expenseRepo.Create(ctx, &entity.Expense{
		ID:           "e1",
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Road trip",
		TotalAmount:  decimal.RequireFromString("60.00"),
		Currency:     "USD",
		SplitType:    entity.SplitCustom,
		Status:       entity.StatusPending,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	rows := []struct {
		id, userID, owed, paid, status string
	}{
		{"p1", "u1", "10.00", "40.00", entity.ParticipantPaid},
		{"p2", "u2", "10.00", "20.00", entity.ParticipantPaid},
		{"p3", "u3", "40.00", "0.00", entity.ParticipantPending},
	}
	for _, r := range rows {
		require.NoError(t, f.participantRepo.Create(ctx, &entity.ExpenseParticipant{
			ID:         r.id,
			ExpenseID:  "e1",
			UserID:     r.userID,
			AmountOwed: decimal.RequireFromString(r.owed),
			AmountPaid: decimal.RequireFromString(r.paid),
			Status:     r.status,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}))
	}
}

func TestUserBalance(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	// u1 fronts 45.00 split three ways; each row tracks only its own share,
	// so the payer nets zero and the others owe their shares.
	_, result, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Cabin rental",
		TotalAmount:  decimal.RequireFromString("45.00"),
		HasReceipt:   true,
	})
	require.NoError(t, err)
	require.True(t, result.AutoApproved)

	tests := []struct {
		userID string
		want   string
	}{
		{"u1", "0.00"},
		{"u2", "-15.00"},
		{"u3", "-15.00"},
	}
	for _, tt := range tests {
		balance, err := f.ledgers.UserBalance(ctx, "g1", tt.userID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString(tt.want)),
			"user %s balance = %s, want %s", tt.userID, balance, tt.want)
	}
}

func TestUserBalance_SettlesToZero(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	expense, _, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Cabin rental",
		TotalAmount:  decimal.RequireFromString("45.00"),
		HasReceipt:   true,
	})
	require.NoError(t, err)

	_, err = f.expenses.SettleParticipant(ctx, expense.ID, "u2", nil)
	require.NoError(t, err)

	balance, err := f.ledgers.UserBalance(ctx, "g1", "u2")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestUserBalance_NotMember(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	_, err := f.ledgers.UserBalance(context.Background(), "g1", "stranger")
	assert.ErrorIs(t, err, entity.ErrNotMember)
}

func TestGroupBalances(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	seedBalances(t, f)

	balances, err := f.ledgers.GroupBalances(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, balances, 3)

	sum := decimal.Zero
	for _, b := range balances {
		sum = sum.Add(b.Balance)
	}
	assert.True(t, sum.IsZero(), "balances sum to zero, got %s", sum)

	assert.Equal(t, ledger.BalanceOwed, balances[0].Status)
	assert.Equal(t, ledger.BalanceOwed, balances[1].Status)
	assert.Equal(t, ledger.BalanceOwes, balances[2].Status)
}

func TestGroupBalances_MemberWithoutExpenses(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	f.membership.add("g1", "u4", entity.RoleMember)
	seedBalances(t, f)

	balances, err := f.ledgers.GroupBalances(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, balances, 4)

	assert.True(t, balances[3].Balance.IsZero())
	assert.Equal(t, ledger.BalanceSettled, balances[3].Status)
}

func TestGroupSummary(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	seedBalances(t, f)
	ctx := context.Background()

	summary, err := f.ledgers.GroupSummary(ctx, "g1", "u3")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalExpenses)
	assert.True(t, summary.TotalAmount.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, 1, summary.PendingCount)
	assert.Equal(t, 0, summary.PartialCount)
	assert.Equal(t, 0, summary.SettledCount)

	require.NotNil(t, summary.User)
	assert.Equal(t, "u3", summary.User.UserID)
	assert.Equal(t, 1, summary.User.ExpenseCount)
	assert.True(t, summary.User.Balance.Equal(decimal.RequireFromString("-40.00")))
	assert.True(t, summary.User.TotalOwed.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, summary.User.TotalPaid.IsZero())
	assert.Equal(t, 1, summary.User.PendingPayments)
}

func TestGroupSummary_WithoutUser(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	seedBalances(t, f)

	summary, err := f.ledgers.GroupSummary(context.Background(), "g1", "")
	require.NoError(t, err)
	assert.Nil(t, summary.User)
}

func TestSettlementPlan(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	seedBalances(t, f)

	plan, err := f.ledgers.SettlementPlan(context.Background(), "g1")
	require.NoError(t, err)
	require.Len(t, plan, 2)

	// {u1: +30, u2: +10, u3: -40}: the single debtor pays the larger
	// creditor first.
	assert.Equal(t, "u3", plan[0].FromUserID)
	assert.Equal(t, "u1", plan[0].ToUserID)
	assert.True(t, plan[0].Amount.Equal(decimal.RequireFromString("30.00")))

	assert.Equal(t, "u3", plan[1].FromUserID)
	assert.Equal(t, "u2", plan[1].ToUserID)
	assert.True(t, plan[1].Amount.Equal(decimal.RequireFromString("10.00")))
}

func TestSettlementPlan_AllSettled(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	plan, err := f.ledgers.SettlementPlan(context.Background(), "g1")
	require.NoError(t, err)
	assert.Empty(t, plan)
}
