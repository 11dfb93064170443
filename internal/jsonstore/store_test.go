package jsonstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"budget/internal/core"
)

func newLedger(t *testing.T, key string) core.MonthLedger {
	t.Helper()
	plan, err := core.NewBudgetPlan(core.CategorySet{
		{Name: "Necessities", Percentage: 60},
		{Name: "Discretionary", Percentage: 40},
	}, core.Money{Cents: 100000})
	if err != nil {
		t.Fatalf("new plan: %v", err)
	}
	return core.MonthLedger{Key: key, Created: time.Now().UTC(), Plan: plan}
}

func TestCreateMonthRejectsDuplicateKey(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	if err := s.CreateMonth(ctx, newLedger(t, "2026-08")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateMonth(ctx, newLedger(t, "2026-08")); !errors.Is(err, core.ErrMonthExists) {
		t.Fatalf("expected ErrMonthExists, got %v", err)
	}
}

func TestGetMonthReturnsCopy(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()
	if err := s.CreateMonth(ctx, newLedger(t, "2026-08")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetMonth(ctx, "2026-08")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.Plan.Categories["Necessities"].Spent.Cents = 999

	again, err := s.GetMonth(ctx, "2026-08")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.Plan.Categories["Necessities"].Spent.Cents != 0 {
		t.Fatal("mutating a returned ledger must not affect the store")
	}
}

func TestSaveMonthUnknownKey(t *testing.T) {
	s, err := Open("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveMonth(context.Background(), newLedger(t, "2026-09")); !errors.Is(err, core.ErrMonthNotFound) {
		t.Fatalf("expected ErrMonthNotFound, got %v", err)
	}
}

func TestCreateMonthRollsBackOnFailedPersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	// Remove the directory so the data file cannot be written.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}
	if err := s.CreateMonth(ctx, newLedger(t, "2026-09")); err == nil {
		t.Fatal("expected create to fail without a data directory")
	}
	if _, err := s.GetMonth(ctx, "2026-09"); !errors.Is(err, core.ErrMonthNotFound) {
		t.Fatalf("failed create must not leave the month behind, got %v", err)
	}

	// Once the directory is back, the same create succeeds on retry.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("restore dir: %v", err)
	}
	if err := s.CreateMonth(ctx, newLedger(t, "2026-09")); err != nil {
		t.Fatalf("retry after restoring directory: %v", err)
	}
	if _, err := s.GetMonth(ctx, "2026-09"); err != nil {
		t.Fatalf("get after retry: %v", err)
	}
}

func TestRoundTripThroughFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	cats := core.CategorySet{
		{Name: "Necessities", Percentage: 60},
		{Name: "Discretionary", Percentage: 40},
	}
	if err := s.SaveCategories(ctx, cats); err != nil {
		t.Fatalf("save categories: %v", err)
	}

	ledger := newLedger(t, "2026-08")
	if err := s.CreateMonth(ctx, ledger); err != nil {
		t.Fatalf("create month: %v", err)
	}
	working, err := s.GetMonth(ctx, "2026-08")
	if err != nil {
		t.Fatalf("get month: %v", err)
	}
	if err := working.Commit(core.Expense{
		ID:          "abc",
		Date:        time.Now().UTC(),
		Category:    "Necessities",
		Amount:      core.Money{Cents: 4530},
		Description: "WHOLE FOODS #123",
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := s.SaveMonth(ctx, working); err != nil {
		t.Fatalf("save month: %v", err)
	}

	rs, err := s.GetRules(ctx)
	if err != nil {
		t.Fatalf("get rules: %v", err)
	}
	rs.Learn("LOCAL DINER", "Discretionary")
	if err := s.SaveRules(ctx, rs); err != nil {
		t.Fatalf("save rules: %v", err)
	}

	// Fresh store over the same directory sees everything.
	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	cats2, err := s2.GetCategories(ctx)
	if err != nil {
		t.Fatalf("get categories: %v", err)
	}
	if len(cats2) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats2))
	}
	ledger2, err := s2.GetMonth(ctx, "2026-08")
	if err != nil {
		t.Fatalf("get month after reopen: %v", err)
	}
	if len(ledger2.Expenses) != 1 || ledger2.Expenses[0].Amount.Cents != 4530 {
		t.Fatalf("expense did not survive reload: %+v", ledger2.Expenses)
	}
	alloc := ledger2.Plan.Categories["Necessities"]
	if alloc == nil || alloc.Spent.Cents != 4530 || alloc.Remaining.Cents != 55470 {
		t.Fatalf("allocation did not survive reload: %+v", alloc)
	}
	rs2, err := s2.GetRules(ctx)
	if err != nil {
		t.Fatalf("get rules after reopen: %v", err)
	}
	if got, ok := rs2.Categorize("THE LOCAL DINER"); !ok || got != "Discretionary" {
		t.Fatalf("learned rule did not survive reload: (%q, %v)", got, ok)
	}
}

func TestDefaultRulesWhenNoFile(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	rs, err := s.GetRules(context.Background())
	if err != nil {
		t.Fatalf("get rules: %v", err)
	}
	if got, ok := rs.Categorize("WHOLE FOODS #1"); !ok || got != "Necessities" {
		t.Fatalf("expected seeded defaults, got (%q, %v)", got, ok)
	}
}

func TestPersistedFileNames(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.SaveCategories(ctx, core.CategorySet{{Name: "A", Percentage: 100}}); err != nil {
		t.Fatalf("save categories: %v", err)
	}
	if err := s.CreateMonth(ctx, newLedger(t, "2026-08")); err != nil {
		t.Fatalf("create month: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "budget_config.json"))
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if !strings.Contains(string(raw), `"percentage"`) {
		t.Fatalf("unexpected config document: %s", raw)
	}
	if _, err := os.Stat(filepath.Join(dir, "budget_data.json")); err != nil {
		t.Fatalf("data file missing: %v", err)
	}
}
