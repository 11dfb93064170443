package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/metrics"
	"budget/internal/statement"
	"budget/internal/store"
)

// ImportResult reports what happened to each transaction in a statement.
type ImportResult struct {
	Total      int `json:"total"`
	Duplicates int `json:"duplicates"`
	Imported   int `json:"imported"`
	Unresolved int `json:"unresolved"`

	// UnresolvedTransactions are debits no rule could categorize. They are
	// returned to the caller so they can be resolved interactively.
	UnresolvedTransactions []core.Transaction `json:"unresolved_transactions,omitempty"`
}

// ImportService turns bank statement exports into committed expenses.
type ImportService struct {
	stores     store.Stores
	amqpClient *amqp.Client
}

func NewImportService(stores store.Stores, amqpClient *amqp.Client) *ImportService {
	return &ImportService{
		stores:     stores,
		amqpClient: amqpClient,
	}
}

// ImportStatement parses a CSV statement and commits every categorizable
// debit against the month. The commits are staged on a copy of the ledger
// and persisted in a single save: either all importable rows land or none
// do. Duplicates and unresolved rows are reported, never committed.
func (s *ImportService) ImportStatement(ctx context.Context, monthKey string, r io.Reader) (ImportResult, error) {
	ledger, err := s.stores.GetMonth(ctx, monthKey)
	if err != nil {
		return ImportResult{}, err
	}

	candidates, err := statement.Parse(ctx, r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("parse statement: %w", err)
	}

	duplicates, fresh := statement.Partition(candidates, ledger.Expenses)

	ruleSet, err := s.stores.GetRules(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("load rules: %w", err)
	}

	staged := ledger.Clone()
	result := ImportResult{
		Total:      len(candidates),
		Duplicates: len(duplicates),
	}

	var committed []string
	for _, tx := range fresh {
		category, ok := ruleSet.Categorize(tx.Description)
		if ok {
			_, ok = staged.Plan.Categories[category]
		}
		if !ok {
			result.Unresolved++
			result.UnresolvedTransactions = append(result.UnresolvedTransactions, tx)
			continue
		}

		expense := core.Expense{
			ID:          uuid.NewString(),
			Date:        parseTransactionDate(tx.Date, monthKey),
			Category:    category,
			Amount:      tx.Amount,
			Description: tx.Description,
		}
		if err := staged.Commit(expense); err != nil {
			metrics.ImportBatches.WithLabelValues(metrics.ResultRejected).Inc()
			return ImportResult{}, fmt.Errorf("commit %q: %w", tx.Description, err)
		}
		committed = append(committed, expense.ID)
		result.Imported++
	}

	if result.Imported > 0 {
		if err := s.stores.SaveMonth(ctx, staged); err != nil {
			metrics.ImportBatches.WithLabelValues(metrics.ResultRejected).Inc()
			return ImportResult{}, fmt.Errorf("save month: %w", err)
		}
		for _, id := range committed {
			s.publishExpenseRecorded(ctx, monthKey, id)
		}
	}

	s.publishImportCompleted(ctx, monthKey, result)

	metrics.ImportBatches.WithLabelValues(metrics.ResultCommitted).Inc()
	metrics.ImportedTransactions.WithLabelValues(metrics.OutcomeImported).Add(float64(result.Imported))
	metrics.ImportedTransactions.WithLabelValues(metrics.OutcomeDuplicate).Add(float64(result.Duplicates))
	metrics.ImportedTransactions.WithLabelValues(metrics.OutcomeUnresolved).Add(float64(result.Unresolved))

	slog.InfoContext(ctx, "Imported statement",
		"month", monthKey,
		"total", result.Total,
		"duplicates", result.Duplicates,
		"imported", result.Imported,
		"unresolved", result.Unresolved)

	return result, nil
}

// Resolve commits an unresolved transaction under the chosen category and
// learns a rule so future imports categorize it automatically. The rule key
// is the merchant substring when given (so "LOCAL BAKERY" also matches
// "LOCAL BAKERY #77"), otherwise the full transaction description.
func (s *ImportService) Resolve(ctx context.Context, monthKey string, tx core.Transaction, category, merchant string) (core.Expense, error) {
	ledger, err := s.stores.GetMonth(ctx, monthKey)
	if err != nil {
		return core.Expense{}, err
	}

	expense := core.Expense{
		ID:          uuid.NewString(),
		Date:        parseTransactionDate(tx.Date, monthKey),
		Category:    category,
		Amount:      tx.Amount,
		Description: tx.Description,
	}
	if err := ledger.Commit(expense); err != nil {
		return core.Expense{}, err
	}
	if err := s.stores.SaveMonth(ctx, ledger); err != nil {
		return core.Expense{}, fmt.Errorf("save month: %w", err)
	}

	ruleSet, err := s.stores.GetRules(ctx)
	if err != nil {
		return core.Expense{}, fmt.Errorf("load rules: %w", err)
	}
	ruleKey := strings.TrimSpace(merchant)
	if ruleKey == "" {
		ruleKey = tx.Description
	}
	ruleSet.Learn(ruleKey, category)
	if err := s.stores.SaveRules(ctx, ruleSet); err != nil {
		return core.Expense{}, fmt.Errorf("save rules: %w", err)
	}

	metrics.ExpensesCommitted.WithLabelValues(category).Inc()
	s.publishExpenseRecorded(ctx, monthKey, expense.ID)

	slog.InfoContext(ctx, "Resolved transaction",
		"month", monthKey,
		"category", category,
		"merchant", ruleKey)

	return expense, nil
}

func (s *ImportService) publishImportCompleted(ctx context.Context, monthKey string, result ImportResult) {
	if s.amqpClient == nil {
		return
	}
	msg := &amqp.ImportCompletedMessage{
		MonthKey:   monthKey,
		Total:      result.Total,
		Duplicates: result.Duplicates,
		Imported:   result.Imported,
		Unresolved: result.Unresolved,
	}
	if err := s.amqpClient.PublishImportCompleted(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish import completed message",
			"month", monthKey,
			"error", err)
	}
}

func (s *ImportService) publishExpenseRecorded(ctx context.Context, monthKey, expenseID string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishExpenseRecorded(ctx, monthKey, expenseID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"month", monthKey,
			"expense_id", expenseID,
			"error", err)
	}
}

// statementDateLayouts are tried in order against raw statement dates.
var statementDateLayouts = []string{
	"01/02/2006",
	"2006-01-02",
	"01/02/06",
}

// parseTransactionDate converts a raw statement date to a timestamp,
// falling back to the first day of the target month when the export uses
// an unrecognized format.
func parseTransactionDate(raw, monthKey string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	if t, err := time.Parse("2006-01", monthKey); err == nil {
		return t
	}
	return time.Now().UTC()
}
