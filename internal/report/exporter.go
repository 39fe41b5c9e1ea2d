package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/entity"
)

const sheetName = "Expenses"

var headers = []string{
	"ID", "Title", "Description", "Total Amount", "Currency",
	"Paid By", "Split Type", "Status", "Created At",
	"Participant", "Amount Owed", "Amount Paid", "Participant Status",
}

// Exporter writes a group's expense history as an xlsx workbook. Each
// participant share gets its own row; expense columns repeat per share.
type Exporter struct {
	expenseRepo     port.ExpenseRepository
	participantRepo port.ParticipantRepository
	logger          *zap.Logger
}

// NewExporter creates a new Exporter
func NewExporter(expenseRepo port.ExpenseRepository, participantRepo port.ParticipantRepository, logger *zap.Logger) *Exporter {
	return &Exporter{
		expenseRepo:     expenseRepo,
		participantRepo: participantRepo,
		logger:          logger,
	}
}

// ExportGroupExpenses writes the workbook for the group's active expenses,
// optionally bounded by creation time, to w.
func (e *Exporter) ExportGroupExpenses(ctx context.Context, groupID string, start, end *time.Time, w io.Writer) error {
	expenses, err := e.expenseRepo.ListForExport(ctx, groupID, start, end)
	if err != nil {
		return fmt.Errorf("list expenses: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	row := 2
	for _, expense := range expenses {
		participants, err := e.participantRepo.GetByExpenseID(ctx, expense.ID)
		if err != nil {
			return fmt.Errorf("load participants: %w", err)
		}
		if len(participants) == 0 {
			if err := e.writeRow(f, row, expense, nil); err != nil {
				return err
			}
			row++
			continue
		}
		for _, p := range participants {
			if !p.IsActive {
				continue
			}
			if err := e.writeRow(f, row, expense, p); err != nil {
				return err
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info("Exported group expenses",
		zap.String("group_id", groupID),
		zap.Int("expenses", len(expenses)))
	return nil
}

func (e *Exporter) writeRow(f *excelize.File, row int, expense *entity.Expense, p *entity.ExpenseParticipant) error {
	values := []interface{}{
		expense.ID,
		expense.Title,
		expense.Description,
		expense.TotalAmount.StringFixed(2),
		expense.Currency,
		expense.PaidByUserID,
		expense.SplitType,
		expense.Status,
		expense.CreatedAt.Format(time.RFC3339),
	}
	if p != nil {
		values = append(values,
			p.UserID,
			p.AmountOwed.StringFixed(2),
			p.AmountPaid.StringFixed(2),
			p.Status,
		)
	}

	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("write row %d: %w", row, err)
		}
	}
	return nil
}
