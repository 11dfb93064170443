package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseWriter mirrors committed expenses to an external sheet.
	ExpenseWriter interface {
		Append(ctx context.Context, monthKey string, e core.Expense) (rowRef string, err error)
	}
)
