package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

func threeMemberGroup(f *fixture) {
	f.membership.add("g1", "u1", entity.RoleOwner)
	f.membership.add("g1", "u2", entity.RoleMember)
	f.membership.add("g1", "u3", entity.RoleMember)
}

func TestCreateExpense_EqualSplitAutoApproved(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	expense, result, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Groceries",
		TotalAmount:  decimal.RequireFromString("20.00"),
		SplitType:    entity.SplitEqual,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.AutoApproved)
	assert.Equal(t, entity.ApprovalAutoAmount, result.Reason)
	// Auto-approved expenses move straight into payment tracking.
	assert.Equal(t, entity.StatusPending, expense.Status)
	assert.Equal(t, entity.ApprovalAutoAmount, expense.ApprovalType)

	participants, err := f.participantRepo.GetByExpenseID(context.Background(), expense.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)

	sum := decimal.Zero
	for _, p := range participants {
		sum = sum.Add(p.AmountOwed)
		if p.UserID == "u1" {
			assert.True(t, p.AmountPaid.Equal(p.AmountOwed), "payer share is pre-paid")
			assert.Equal(t, entity.ParticipantPaid, p.Status)
		} else {
			assert.True(t, p.AmountPaid.IsZero())
			assert.Equal(t, entity.ParticipantPending, p.Status)
		}
	}
	assert.True(t, sum.Equal(expense.TotalAmount), "shares sum to the total exactly")
}

func TestCreateExpense_UnevenSplitSharesDiffer(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	expense, _, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:            "g1",
		PaidByUserID:       "u1",
		Title:              "Dinner",
		TotalAmount:        decimal.RequireFromString("100.00"),
		SplitType:          entity.SplitEqual,
		ParticipantUserIDs: []string{"u1", "u2", "u3"},
	})
	require.NoError(t, err)

	participants, err := f.participantRepo.GetByExpenseID(context.Background(), expense.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)

	want := []string{"33.34", "33.33", "33.33"}
	for i, p := range participants {
		assert.True(t, p.AmountOwed.Equal(decimal.RequireFromString(want[i])),
			"participant %d owes %s, want %s", i, p.AmountOwed, want[i])
	}
}

func TestCreateExpense_PayerNotMember(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	_, _, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "stranger",
		Title:        "Taxi",
		TotalAmount:  decimal.RequireFromString("10.00"),
	})
	assert.ErrorIs(t, err, entity.ErrNotMember)
}

func TestCreateExpense_ParticipantNotMember(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	_, _, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:            "g1",
		PaidByUserID:       "u1",
		Title:              "Taxi",
		TotalAmount:        decimal.RequireFromString("10.00"),
		ParticipantUserIDs: []string{"u1", "stranger"},
	})
	assert.ErrorIs(t, err, entity.ErrNotMember)
}

func TestCreateExpense_EmptyParticipantList(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	_, _, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:            "g1",
		PaidByUserID:       "u1",
		Title:              "Taxi",
		TotalAmount:        decimal.RequireFromString("10.00"),
		ParticipantUserIDs: []string{},
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestCreateExpense_CustomSplitMismatch(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	_, _, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:            "g1",
		PaidByUserID:       "u1",
		Title:              "Rent",
		TotalAmount:        decimal.RequireFromString("100.00"),
		SplitType:          entity.SplitCustom,
		ParticipantUserIDs: []string{"u1", "u2"},
		SplitAmounts: []decimal.Decimal{
			decimal.RequireFromString("50.00"),
			decimal.RequireFromString("49.00"),
		},
	})
	assert.ErrorIs(t, err, entity.ErrAmountMismatch)
}

func TestCreateExpense_InvalidAmount(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	_, _, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Nothing",
		TotalAmount:  decimal.Zero,
	})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestCreateExpense_QueuedForManualApproval(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)

	// 150.00, no receipt, new member: over every auto-approval limit.
	expense, result, err := f.expenses.CreateExpense(context.Background(), CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u2",
		Title:        "Concert tickets",
		TotalAmount:  decimal.RequireFromString("150.00"),
	})
	require.NoError(t, err)

	assert.False(t, result.AutoApproved)
	// +2 for >100, +1 for new member, +2 for missing receipt over 50.00.
	assert.Equal(t, 5, result.Priority)
	assert.Equal(t, entity.StatusPendingApproval, expense.Status)

	entry, err := f.queueRepo.GetByExpenseID(context.Background(), expense.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Priority)
}

func TestSettleParticipant_PartialThenFull(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	expense, _, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Pizza",
		TotalAmount:  decimal.RequireFromString("24.00"),
	})
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, expense.Status)

	partial := decimal.RequireFromString("3.00")
	p, err := f.expenses.SettleParticipant(ctx, expense.ID, "u2", &partial)
	require.NoError(t, err)
	assert.True(t, p.AmountPaid.Equal(partial))
	assert.Equal(t, entity.ParticipantPending, p.Status)

	updated, _ := f.expenseRepo.GetByID(ctx, expense.ID)
	assert.Equal(t, entity.StatusPartial, updated.Status)

	// nil amount settles the remainder.
	p, err = f.expenses.SettleParticipant(ctx, expense.ID, "u2", nil)
	require.NoError(t, err)
	assert.Equal(t, entity.ParticipantPaid, p.Status)
	assert.True(t, p.AmountPaid.Equal(decimal.RequireFromString("8.00")))

	_, err = f.expenses.SettleParticipant(ctx, expense.ID, "u3", nil)
	require.NoError(t, err)

	updated, _ = f.expenseRepo.GetByID(ctx, expense.ID)
	assert.Equal(t, entity.StatusSettled, updated.Status)
}

func TestSettleParticipant_Overpay(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	expense, _, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Pizza",
		TotalAmount:  decimal.RequireFromString("24.00"),
	})
	require.NoError(t, err)

	over := decimal.RequireFromString("9.00")
	_, err = f.expenses.SettleParticipant(ctx, expense.ID, "u2", &over)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestSettleParticipant_BeforeApproval(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	expense, _, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u2",
		Title:        "Concert tickets",
		TotalAmount:  decimal.RequireFromString("150.00"),
	})
	require.NoError(t, err)
	require.Equal(t, entity.StatusPendingApproval, expense.Status)

	_, err = f.expenses.SettleParticipant(ctx, expense.ID, "u3", nil)
	assert.ErrorIs(t, err, entity.ErrInvalidState)
}

func TestSettleParticipant_NotParticipant(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	expense, _, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:            "g1",
		PaidByUserID:       "u1",
		Title:              "Pizza",
		TotalAmount:        decimal.RequireFromString("24.00"),
		ParticipantUserIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)

	_, err = f.expenses.SettleParticipant(ctx, expense.ID, "u3", nil)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSettleParticipant_RecomputeIdempotent(t *testing.T) {
	f := newFixture()
	threeMemberGroup(f)
	ctx := context.Background()

	expense, _, err := f.expenses.CreateExpense(ctx, CreateExpenseInput{
		GroupID:      "g1",
		PaidByUserID: "u1",
		Title:        "Pizza",
		TotalAmount:  decimal.RequireFromString("24.00"),
	})
	require.NoError(t, err)

	partial := decimal.RequireFromString("3.00")
	_, err = f.expenses.SettleParticipant(ctx, expense.ID, "u2", &partial)
	require.NoError(t, err)

	first, err := f.expenses.RefreshStatus(ctx, expense.ID)
	require.NoError(t, err)
	second, err := f.expenses.RefreshStatus(ctx, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, entity.StatusPartial, second.Status)
}
