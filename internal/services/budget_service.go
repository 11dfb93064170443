package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/metrics"
	"budget/internal/store"
)

// BudgetService orchestrates month planning and expense tracking across
// the persistence backend and the optional AMQP sync queue.
type BudgetService struct {
	stores     store.Stores
	amqpClient *amqp.Client
}

func NewBudgetService(stores store.Stores, amqpClient *amqp.Client) *BudgetService {
	return &BudgetService{
		stores:     stores,
		amqpClient: amqpClient,
	}
}

// CreateMonth starts a new monthly budget from the configured categories.
// The category percentages are snapshotted into the plan, so later edits
// to the category set do not affect existing months.
func (s *BudgetService) CreateMonth(ctx context.Context, key string, totalIncome core.Money) (core.MonthLedger, error) {
	if !core.ValidMonthKey(key) {
		return core.MonthLedger{}, fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, key)
	}

	cats, err := s.stores.GetCategories(ctx)
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("load categories: %w", err)
	}

	plan, err := core.NewBudgetPlan(cats, totalIncome)
	if err != nil {
		return core.MonthLedger{}, err
	}

	if sum := plan.PercentageSum(); math.Abs(sum-100) > 0.01 {
		slog.WarnContext(ctx, "Category percentages do not sum to 100",
			"month", key,
			"percentage_sum", sum)
	}

	ledger := core.MonthLedger{
		Key:     key,
		Created: time.Now().UTC(),
		Plan:    plan,
	}

	if err := s.stores.CreateMonth(ctx, ledger); err != nil {
		return core.MonthLedger{}, err
	}

	slog.InfoContext(ctx, "Created month budget",
		"month", key,
		"income", totalIncome.String(),
		"categories", len(cats))

	return ledger, nil
}

// GetMonth returns the ledger for the given month key.
func (s *BudgetService) GetMonth(ctx context.Context, key string) (core.MonthLedger, error) {
	return s.stores.GetMonth(ctx, key)
}

// ListMonths returns all tracked month keys in ascending order.
func (s *BudgetService) ListMonths(ctx context.Context) ([]string, error) {
	return s.stores.ListMonthKeys(ctx)
}

// MonthSummary computes the aggregated view of a month.
func (s *BudgetService) MonthSummary(ctx context.Context, key string) (core.MonthSummary, error) {
	ledger, err := s.stores.GetMonth(ctx, key)
	if err != nil {
		return core.MonthSummary{}, err
	}
	return core.Summarize(ledger), nil
}

// Overview aggregates income across every tracked month.
func (s *BudgetService) Overview(ctx context.Context) (core.Overview, error) {
	keys, err := s.stores.ListMonthKeys(ctx)
	if err != nil {
		return core.Overview{}, err
	}

	incomes := make([]core.Money, 0, len(keys))
	for _, key := range keys {
		ledger, err := s.stores.GetMonth(ctx, key)
		if err != nil {
			return core.Overview{}, fmt.Errorf("load month %s: %w", key, err)
		}
		incomes = append(incomes, ledger.Plan.TotalIncome)
	}

	return core.NewOverview(incomes), nil
}

// CommitExpense records a manually entered expense against a month and
// publishes a sync message for the sheet mirror.
func (s *BudgetService) CommitExpense(ctx context.Context, monthKey, category, description string, amount core.Money, date time.Time) (core.Expense, error) {
	ledger, err := s.stores.GetMonth(ctx, monthKey)
	if err != nil {
		return core.Expense{}, err
	}

	if date.IsZero() {
		date = time.Now().UTC()
	}

	expense := core.Expense{
		ID:          uuid.NewString(),
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: description,
	}

	if err := ledger.Commit(expense); err != nil {
		return core.Expense{}, err
	}

	if err := s.stores.SaveMonth(ctx, ledger); err != nil {
		return core.Expense{}, fmt.Errorf("save month: %w", err)
	}

	metrics.ExpensesCommitted.WithLabelValues(category).Inc()
	s.publishExpenseRecorded(ctx, monthKey, expense.ID)

	slog.InfoContext(ctx, "Committed expense",
		"month", monthKey,
		"category", category,
		"amount", amount.String())

	return expense, nil
}

// Categories returns the configured category set.
func (s *BudgetService) Categories(ctx context.Context) (core.CategorySet, error) {
	return s.stores.GetCategories(ctx)
}

// AddCategory adds a category to the configured set. Existing months keep
// their snapshotted plans.
func (s *BudgetService) AddCategory(ctx context.Context, c core.Category) (core.CategorySet, error) {
	cats, err := s.stores.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	updated, err := cats.Add(c)
	if err != nil {
		return nil, err
	}

	if err := s.stores.SaveCategories(ctx, updated); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}

	if sum := updated.PercentageSum(); math.Abs(sum-100) > 0.01 {
		slog.WarnContext(ctx, "Category percentages do not sum to 100",
			"percentage_sum", sum)
	}

	return updated, nil
}

// RemoveCategory removes a category from the configured set.
func (s *BudgetService) RemoveCategory(ctx context.Context, name string) (core.CategorySet, error) {
	cats, err := s.stores.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	updated, err := cats.Remove(name)
	if err != nil {
		return nil, err
	}

	if err := s.stores.SaveCategories(ctx, updated); err != nil {
		return nil, fmt.Errorf("save categories: %w", err)
	}

	return updated, nil
}

func (s *BudgetService) publishExpenseRecorded(ctx context.Context, monthKey, expenseID string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishExpenseRecorded(ctx, monthKey, expenseID); err != nil {
		// The expense is already persisted, the mirror can catch up later.
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"month", monthKey,
			"expense_id", expenseID,
			"error", err)
	}
}
