package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/store"
)

// SyncWorker mirrors committed expenses to an external spreadsheet.
type SyncWorker struct {
	months store.MonthStore
	sheets sheets.ExpenseWriter
}

func NewSyncWorker(months store.MonthStore, writer sheets.ExpenseWriter) *SyncWorker {
	return &SyncWorker{
		months: months,
		sheets: writer,
	}
}

// HandleRecordedMessage processes a single expense recorded message from AMQP
func (w *SyncWorker) HandleRecordedMessage(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	slog.InfoContext(ctx, "Processing recorded message",
		"month", msg.MonthKey,
		"expense_id", msg.ExpenseID)

	ledger, err := w.months.GetMonth(ctx, msg.MonthKey)
	if err != nil {
		return fmt.Errorf("get month from store: %w", err)
	}

	expense, ok := findExpense(ledger, msg.ExpenseID)
	if !ok {
		// The expense was removed between publish and consume, nothing to mirror.
		slog.WarnContext(ctx, "Expense not found in month, skipping",
			"month", msg.MonthKey,
			"expense_id", msg.ExpenseID)
		return nil
	}

	rowRef, err := w.sheets.Append(ctx, msg.MonthKey, expense)
	if err != nil {
		return fmt.Errorf("append expense to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored expense to sheet",
		"month", msg.MonthKey,
		"expense_id", msg.ExpenseID,
		"row_ref", rowRef)

	return nil
}

func findExpense(ledger core.MonthLedger, id string) (core.Expense, bool) {
	for _, e := range ledger.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}
