// Package storage is the SQLite persistence backend. Month ledgers are
// rewritten inside a single transaction on save, which is what makes an
// import batch all-or-nothing on this backend.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"
	"budget/internal/rules"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateMonth inserts a new month ledger, failing with core.ErrMonthExists
// when the key is already tracked.
func (r *SQLiteRepository) CreateMonth(ctx context.Context, ledger core.MonthLedger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM months WHERE key = ?", ledger.Key).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check month key: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: %s", core.ErrMonthExists, ledger.Key)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO months (key, created_at, total_income_cents) VALUES (?, ?, ?)",
		ledger.Key, ledger.Created.Format(time.RFC3339), ledger.Plan.TotalIncome.Cents)
	if err != nil {
		return fmt.Errorf("insert month: %w", err)
	}
	if err := insertMonthRows(ctx, tx, ledger); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Month created",
		"month", ledger.Key,
		"income_cents", ledger.Plan.TotalIncome.Cents,
		"categories", len(ledger.Plan.Categories))
	return nil
}

// GetMonth loads a month's plan and expenses. Remaining is recomputed from
// allocated and spent, so the plan invariant holds by construction.
func (r *SQLiteRepository) GetMonth(ctx context.Context, key string) (core.MonthLedger, error) {
	ledger := core.MonthLedger{Key: key}

	var createdAt string
	var incomeCents int64
	err := r.db.QueryRowContext(ctx,
		"SELECT created_at, total_income_cents FROM months WHERE key = ?", key).
		Scan(&createdAt, &incomeCents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthLedger{}, fmt.Errorf("%w: %s", core.ErrMonthNotFound, key)
	}
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("get month: %w", err)
	}
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		ledger.Created = t
	}
	ledger.Plan = core.BudgetPlan{
		TotalIncome: core.Money{Cents: incomeCents},
		Categories:  make(map[string]*core.Allocation),
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT category, percentage, allocated_cents, spent_cents FROM allocations WHERE month_key = ?", key)
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("get allocations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var pct float64
		var allocated, spent int64
		if err := rows.Scan(&name, &pct, &allocated, &spent); err != nil {
			return core.MonthLedger{}, fmt.Errorf("scan allocation: %w", err)
		}
		ledger.Plan.Categories[name] = &core.Allocation{
			Percentage: pct,
			Allocated:  core.Money{Cents: allocated},
			Spent:      core.Money{Cents: spent},
			Remaining:  core.Money{Cents: allocated - spent},
		}
	}
	if err := rows.Err(); err != nil {
		return core.MonthLedger{}, fmt.Errorf("iterate allocations: %w", err)
	}

	expRows, err := r.db.QueryContext(ctx,
		"SELECT id, date, category, amount_cents, description FROM expenses WHERE month_key = ? ORDER BY position", key)
	if err != nil {
		return core.MonthLedger{}, fmt.Errorf("get expenses: %w", err)
	}
	defer expRows.Close()
	for expRows.Next() {
		var e core.Expense
		var date string
		var cents int64
		if err := expRows.Scan(&e.ID, &date, &e.Category, &cents, &e.Description); err != nil {
			return core.MonthLedger{}, fmt.Errorf("scan expense: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339, date); perr == nil {
			e.Date = t
		}
		e.Amount = core.Money{Cents: cents}
		ledger.Expenses = append(ledger.Expenses, e)
	}
	if err := expRows.Err(); err != nil {
		return core.MonthLedger{}, fmt.Errorf("iterate expenses: %w", err)
	}

	return ledger, nil
}

// SaveMonth replaces the month's allocations and expenses in one transaction.
func (r *SQLiteRepository) SaveMonth(ctx context.Context, ledger core.MonthLedger) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE months SET created_at = ?, total_income_cents = ? WHERE key = ?",
		ledger.Created.Format(time.RFC3339), ledger.Plan.TotalIncome.Cents, ledger.Key)
	if err != nil {
		return fmt.Errorf("update month: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", core.ErrMonthNotFound, ledger.Key)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM allocations WHERE month_key = ?", ledger.Key); err != nil {
		return fmt.Errorf("clear allocations: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE month_key = ?", ledger.Key); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if err := insertMonthRows(ctx, tx, ledger); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertMonthRows(ctx context.Context, tx *sql.Tx, ledger core.MonthLedger) error {
	for name, a := range ledger.Plan.Categories {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO allocations (month_key, category, percentage, allocated_cents, spent_cents) VALUES (?, ?, ?, ?, ?)",
			ledger.Key, name, a.Percentage, a.Allocated.Cents, a.Spent.Cents)
		if err != nil {
			return fmt.Errorf("insert allocation %s: %w", name, err)
		}
	}
	for i, e := range ledger.Expenses {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO expenses (id, month_key, position, date, category, amount_cents, description) VALUES (?, ?, ?, ?, ?, ?, ?)",
			e.ID, ledger.Key, i, e.Date.Format(time.RFC3339), e.Category, e.Amount.Cents, e.Description)
		if err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) ListMonthKeys(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key FROM months ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan month key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month keys: %w", err)
	}
	return keys, nil
}

func (r *SQLiteRepository) GetCategories(ctx context.Context) (core.CategorySet, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT name, percentage, subcategories FROM categories ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}
	defer rows.Close()

	var cats core.CategorySet
	for rows.Next() {
		var c core.Category
		var subs string
		if err := rows.Scan(&c.Name, &c.Percentage, &subs); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if subs != "" && subs != "[]" {
			if err := json.Unmarshal([]byte(subs), &c.Subcategories); err != nil {
				slog.WarnContext(ctx, "Ignoring malformed subcategories", "category", c.Name, "error", err)
			}
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

func (r *SQLiteRepository) SaveCategories(ctx context.Context, cats core.CategorySet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM categories"); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for i, c := range cats {
		subs := "[]"
		if len(c.Subcategories) > 0 {
			raw, merr := json.Marshal(c.Subcategories)
			if merr != nil {
				return fmt.Errorf("encode subcategories for %s: %w", c.Name, merr)
			}
			subs = string(raw)
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO categories (name, percentage, subcategories, position) VALUES (?, ?, ?, ?)",
			c.Name, c.Percentage, subs, i)
		if err != nil {
			return fmt.Errorf("insert category %s: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetRules(ctx context.Context) (rules.RuleSet, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT layer, pattern, category FROM rules")
	if err != nil {
		return rules.RuleSet{}, fmt.Errorf("get rules: %w", err)
	}
	defer rows.Close()

	rs := rules.RuleSet{
		Keyword: map[string]string{},
		Learned: map[string]string{},
	}
	for rows.Next() {
		var layer, pattern, category string
		if err := rows.Scan(&layer, &pattern, &category); err != nil {
			return rules.RuleSet{}, fmt.Errorf("scan rule: %w", err)
		}
		switch layer {
		case "learned":
			rs.Learned[pattern] = category
		default:
			rs.Keyword[pattern] = category
		}
	}
	if err := rows.Err(); err != nil {
		return rules.RuleSet{}, fmt.Errorf("iterate rules: %w", err)
	}
	return rs, nil
}

func (r *SQLiteRepository) SaveRules(ctx context.Context, rs rules.RuleSet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM rules"); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	for pattern, category := range rs.Keyword {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rules (layer, pattern, category) VALUES ('keyword', ?, ?)", pattern, category); err != nil {
			return fmt.Errorf("insert keyword rule %s: %w", pattern, err)
		}
	}
	for pattern, category := range rs.Learned {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO rules (layer, pattern, category) VALUES ('learned', ?, ?)", pattern, category); err != nil {
			return fmt.Errorf("insert learned rule %s: %w", pattern, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
