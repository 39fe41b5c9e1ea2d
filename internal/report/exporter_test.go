package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

type stubExpenseRepo struct {
	port.ExpenseRepository
	expenses []*entity.Expense
	gotStart *time.Time
	gotEnd   *time.Time
}

func (s *stubExpenseRepo) ListForExport(ctx context.Context, groupID string, start, end *time.Time) ([]*entity.Expense, error) {
	s.gotStart = start
	s.gotEnd = end
	return s.expenses, nil
}

type stubParticipantRepo struct {
	port.ParticipantRepository
	byExpense map[string][]*entity.ExpenseParticipant
}

func (s *stubParticipantRepo) GetByExpenseID(ctx context.Context, expenseID string) ([]*entity.ExpenseParticipant, error) {
	return s.byExpense[expenseID], nil
}

func testExpense(id, title string, amount string) *entity.Expense {
	total, _ := decimal.NewFromString(amount)
	return &entity.Expense{
		ID:           id,
		GroupID:      "group-1",
		PaidByUserID: "alice",
		Title:        title,
		TotalAmount:  total,
		Currency:     "USD",
		SplitType:    entity.SplitEqual,
		Status:       entity.StatusPending,
		IsActive:     true,
		CreatedAt:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func testParticipant(expenseID, userID, owed, paid string) *entity.ExpenseParticipant {
	owedDec, _ := decimal.NewFromString(owed)
	paidDec, _ := decimal.NewFromString(paid)
	return &entity.ExpenseParticipant{
		ID:         expenseID + "-" + userID,
		ExpenseID:  expenseID,
		UserID:     userID,
		AmountOwed: owedDec,
		AmountPaid: paidDec,
		Status:     entity.ParticipantPending,
		IsActive:   true,
	}
}

func TestExportGroupExpenses_OneRowPerShare(t *testing.T) {
	expenseRepo := &stubExpenseRepo{
		expenses: []*entity.Expense{testExpense("exp-1", "Dinner", "90.00")},
	}
	participantRepo := &stubParticipantRepo{
		byExpense: map[string][]*entity.ExpenseParticipant{
			"exp-1": {
				testParticipant("exp-1", "alice", "30.00", "30.00"),
				testParticipant("exp-1", "bob", "30.00", "0.00"),
				testParticipant("exp-1", "carol", "30.00", "0.00"),
			},
		},
	}
	exporter := NewExporter(expenseRepo, participantRepo, zap.NewNop())

	var buf bytes.Buffer
	err := exporter.ExportGroupExpenses(context.Background(), "group-1", nil, nil, &buf)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4) // header + one row per share

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "Dinner", rows[1][1])
	assert.Equal(t, "90.00", rows[1][3])
	assert.Equal(t, "alice", rows[1][9])
	assert.Equal(t, "bob", rows[2][9])
	assert.Equal(t, "0.00", rows[2][11])
	assert.Equal(t, "carol", rows[3][9])
}

func TestExportGroupExpenses_SkipsInactiveShares(t *testing.T) {
	inactive := testParticipant("exp-1", "dave", "45.00", "0.00")
	inactive.IsActive = false

	expenseRepo := &stubExpenseRepo{
		expenses: []*entity.Expense{testExpense("exp-1", "Taxi", "45.00")},
	}
	participantRepo := &stubParticipantRepo{
		byExpense: map[string][]*entity.ExpenseParticipant{
			"exp-1": {testParticipant("exp-1", "alice", "45.00", "0.00"), inactive},
		},
	}
	exporter := NewExporter(expenseRepo, participantRepo, zap.NewNop())

	var buf bytes.Buffer
	require.NoError(t, exporter.ExportGroupExpenses(context.Background(), "group-1", nil, nil, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[1][9])
}

func TestExportGroupExpenses_PassesDateBounds(t *testing.T) {
	expenseRepo := &stubExpenseRepo{}
	participantRepo := &stubParticipantRepo{}
	exporter := NewExporter(expenseRepo, participantRepo, zap.NewNop())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, exporter.ExportGroupExpenses(context.Background(), "group-1", &start, &end, &buf))

	require.NotNil(t, expenseRepo.gotStart)
	require.NotNil(t, expenseRepo.gotEnd)
	assert.True(t, expenseRepo.gotStart.Equal(start))
	assert.True(t, expenseRepo.gotEnd.Equal(end))
}
