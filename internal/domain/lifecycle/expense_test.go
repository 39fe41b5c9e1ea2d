package lifecycle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

func participant(owed, paid string, active bool) *entity.ExpenseParticipant {
	return &entity.ExpenseParticipant{
		AmountOwed: decimal.RequireFromString(owed),
		AmountPaid: decimal.RequireFromString(paid),
		IsActive:   active,
	}
}

func TestPaymentStatus(t *testing.T) {
	tests := []struct {
		name string
		owed string
		paid string
		want State
	}{
		{"nothing paid", "30.00", "0.00", StatePending},
		{"partially paid", "30.00", "10.00", StatePartial},
		{"fully paid", "30.00", "30.00", StateSettled},
		{"overpaid", "30.00", "35.00", StateSettled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaymentStatus(decimal.RequireFromString(tt.owed), decimal.RequireFromString(tt.paid))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdvance(t *testing.T) {
	paidSet := []*entity.ExpenseParticipant{
		participant("10.00", "10.00", true),
		participant("10.00", "0.00", true),
	}
	settledSet := []*entity.ExpenseParticipant{
		participant("10.00", "10.00", true),
		participant("10.00", "10.00", true),
	}

	tests := []struct {
		name         string
		status       string
		participants []*entity.ExpenseParticipant
		wantStatus   string
		wantChanged  bool
	}{
		{"rejected never changes", entity.StatusRejected, settledSet, entity.StatusRejected, false},
		{"auto approved activates", entity.StatusAutoApproved, paidSet, entity.StatusPending, true},
		{"approved activates", entity.StatusApproved, paidSet, entity.StatusPending, true},
		{"approved without participants holds", entity.StatusApproved, nil, entity.StatusApproved, false},
		{"pending to partial", entity.StatusPending, paidSet, entity.StatusPartial, true},
		{"pending to settled", entity.StatusPending, settledSet, entity.StatusSettled, true},
		{"partial back to pending", entity.StatusPartial, []*entity.ExpenseParticipant{participant("10.00", "0.00", true)}, entity.StatusPending, true},
		{"settled untouched by advance", entity.StatusSettled, paidSet, entity.StatusSettled, false},
		{"inactive participants excluded", entity.StatusPending, []*entity.ExpenseParticipant{
			participant("10.00", "0.00", true),
			participant("10.00", "10.00", false),
		}, entity.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Advance(tt.status, tt.participants)
			assert.Equal(t, tt.wantStatus, got)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}

// Advancing twice with no intervening payment must not report a second
// change.
func TestAdvance_Idempotent(t *testing.T) {
	participants := []*entity.ExpenseParticipant{
		participant("15.00", "5.00", true),
		participant("15.00", "0.00", true),
	}

	status, changed := Advance(entity.StatusPending, participants)
	assert.Equal(t, entity.StatusPartial, status)
	assert.True(t, changed)

	status, changed = Advance(status, participants)
	assert.Equal(t, entity.StatusPartial, status)
	assert.False(t, changed)
}

func TestRefresh_ReopensSettled(t *testing.T) {
	participants := []*entity.ExpenseParticipant{
		participant("10.00", "5.00", true),
	}

	// Advance leaves settled alone; Refresh recalculates it.
	status, changed := Advance(entity.StatusSettled, participants)
	assert.Equal(t, entity.StatusSettled, status)
	assert.False(t, changed)

	status, changed = Refresh(entity.StatusSettled, participants)
	assert.Equal(t, entity.StatusPartial, status)
	assert.True(t, changed)
}

func TestRefresh_OnlyPaymentPhase(t *testing.T) {
	status, changed := Refresh(entity.StatusPendingApproval, nil)
	assert.Equal(t, entity.StatusPendingApproval, status)
	assert.False(t, changed)
}
