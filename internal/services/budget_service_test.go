package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/jsonstore"
)

func newBudgetService(t *testing.T) *BudgetService {
	t.Helper()
	st, err := jsonstore.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cats := core.CategorySet{
		{Name: "Necessities", Percentage: 60},
		{Name: "Discretionary", Percentage: 40},
	}
	if err := st.SaveCategories(context.Background(), cats); err != nil {
		t.Fatalf("seed categories: %v", err)
	}
	return NewBudgetService(st, nil)
}

func TestCreateMonth(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	ledger, err := svc.CreateMonth(ctx, "2026-08", core.Money{Cents: 500000})
	if err != nil {
		t.Fatalf("create month: %v", err)
	}
	if got := ledger.Plan.Categories["Necessities"].Allocated.Cents; got != 300000 {
		t.Errorf("Necessities allocated = %d, want 300000", got)
	}
	if got := ledger.Plan.Categories["Discretionary"].Allocated.Cents; got != 200000 {
		t.Errorf("Discretionary allocated = %d, want 200000", got)
	}

	if _, err := svc.CreateMonth(ctx, "2026-08", core.Money{Cents: 100000}); !errors.Is(err, core.ErrMonthExists) {
		t.Fatalf("expected ErrMonthExists, got %v", err)
	}
}

func TestCreateMonthValidation(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		key    string
		income core.Money
		want   error
	}{
		{"bad key format", "August 2026", core.Money{Cents: 1000}, core.ErrInvalidMonthKey},
		{"bad month number", "2026-13", core.Money{Cents: 1000}, core.ErrInvalidMonthKey},
		{"zero income", "2026-08", core.Money{}, core.ErrInvalidAmount},
		{"negative income", "2026-08", core.Money{Cents: -5}, core.ErrInvalidAmount},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.CreateMonth(ctx, tc.key, tc.income); !errors.Is(err, tc.want) {
				t.Errorf("CreateMonth(%q) error = %v, want %v", tc.key, err, tc.want)
			}
		})
	}
}

func TestCreateMonthNoCategories(t *testing.T) {
	st, err := jsonstore.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := NewBudgetService(st, nil)

	if _, err := svc.CreateMonth(context.Background(), "2026-08", core.Money{Cents: 1000}); !errors.Is(err, core.ErrEmptyCategories) {
		t.Fatalf("expected ErrEmptyCategories, got %v", err)
	}
}

func TestCommitExpense(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	if _, err := svc.CreateMonth(ctx, "2026-08", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("create month: %v", err)
	}

	expense, err := svc.CommitExpense(ctx, "2026-08", "Necessities", "WHOLE FOODS #1", core.Money{Cents: 4599}, time.Time{})
	if err != nil {
		t.Fatalf("commit expense: %v", err)
	}
	if expense.ID == "" {
		t.Error("expected generated expense ID")
	}

	ledger, err := svc.GetMonth(ctx, "2026-08")
	if err != nil {
		t.Fatalf("reload month: %v", err)
	}
	alloc := ledger.Plan.Categories["Necessities"]
	if alloc.Spent.Cents != 4599 || alloc.Remaining.Cents != 295401 {
		t.Errorf("allocation after commit = %+v", alloc)
	}
	if len(ledger.Expenses) != 1 {
		t.Fatalf("expected 1 persisted expense, got %d", len(ledger.Expenses))
	}
}

func TestCommitExpenseErrors(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	if _, err := svc.CreateMonth(ctx, "2026-08", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("create month: %v", err)
	}

	if _, err := svc.CommitExpense(ctx, "2026-08", "Vacation", "HOTEL", core.Money{Cents: 100}, time.Time{}); !errors.Is(err, core.ErrUnknownCategory) {
		t.Errorf("unknown category: got %v", err)
	}
	if _, err := svc.CommitExpense(ctx, "2026-08", "Necessities", "FREE", core.Money{}, time.Time{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero amount: got %v", err)
	}
	if _, err := svc.CommitExpense(ctx, "2030-01", "Necessities", "X", core.Money{Cents: 100}, time.Time{}); !errors.Is(err, core.ErrMonthNotFound) {
		t.Errorf("unknown month: got %v", err)
	}
}

func TestMonthSummary(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	if _, err := svc.CreateMonth(ctx, "2026-08", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("create month: %v", err)
	}
	if _, err := svc.CommitExpense(ctx, "2026-08", "Discretionary", "NETFLIX", core.Money{Cents: 1599}, time.Time{}); err != nil {
		t.Fatalf("commit expense: %v", err)
	}

	summary, err := svc.MonthSummary(ctx, "2026-08")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalSpent.Cents != 1599 {
		t.Errorf("TotalSpent = %d, want 1599", summary.TotalSpent.Cents)
	}
	if summary.TotalRemaining.Cents != 498401 {
		t.Errorf("TotalRemaining = %d, want 498401", summary.TotalRemaining.Cents)
	}
	if summary.ExpenseCount != 1 {
		t.Errorf("ExpenseCount = %d, want 1", summary.ExpenseCount)
	}
	if len(summary.Categories) != 2 || summary.Categories[0].Name != "Discretionary" {
		t.Errorf("categories not in name order: %+v", summary.Categories)
	}
}

func TestOverview(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	for _, m := range []struct {
		key    string
		income int64
	}{
		{"2026-07", 400000},
		{"2026-08", 600000},
	} {
		if _, err := svc.CreateMonth(ctx, m.key, core.Money{Cents: m.income}); err != nil {
			t.Fatalf("create %s: %v", m.key, err)
		}
	}

	overview, err := svc.Overview(ctx)
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.MonthsTracked != 2 {
		t.Errorf("MonthsTracked = %d, want 2", overview.MonthsTracked)
	}
	if overview.TotalIncome.Cents != 1000000 {
		t.Errorf("TotalIncome = %d, want 1000000", overview.TotalIncome.Cents)
	}
	if overview.AverageIncome.Cents != 500000 {
		t.Errorf("AverageIncome = %d, want 500000", overview.AverageIncome.Cents)
	}
}

func TestCategoryEditsDoNotTouchExistingMonths(t *testing.T) {
	svc := newBudgetService(t)
	ctx := context.Background()

	if _, err := svc.CreateMonth(ctx, "2026-08", core.Money{Cents: 500000}); err != nil {
		t.Fatalf("create month: %v", err)
	}

	if _, err := svc.AddCategory(ctx, core.Category{Name: "Savings", Percentage: 10}); err != nil {
		t.Fatalf("add category: %v", err)
	}
	if _, err := svc.AddCategory(ctx, core.Category{Name: "Savings", Percentage: 5}); !errors.Is(err, core.ErrDuplicateCategory) {
		t.Errorf("duplicate add: got %v", err)
	}
	if _, err := svc.RemoveCategory(ctx, "Ghost"); !errors.Is(err, core.ErrCategoryNotFound) {
		t.Errorf("remove missing: got %v", err)
	}

	ledger, err := svc.GetMonth(ctx, "2026-08")
	if err != nil {
		t.Fatalf("reload month: %v", err)
	}
	if len(ledger.Plan.Categories) != 2 {
		t.Errorf("existing month plan changed: %d categories", len(ledger.Plan.Categories))
	}
}
