package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyDescription  = errors.New("empty description")
	ErrEmptyCategoryName = errors.New("empty category name")
	ErrInvalidPercentage = errors.New("percentage must be greater than zero")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrEmptyCategories   = errors.New("no categories defined")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrMonthExists       = errors.New("month already exists")
	ErrMonthNotFound     = errors.New("month not found")
	ErrInvalidMonthKey   = errors.New("invalid month key, expected YYYY-MM")
)

type (
	// Category is a named spending bucket with a percentage of monthly income.
	Category struct {
		Name          string
		Percentage    float64
		Subcategories []string
	}

	// CategorySet is the configured set of categories, in stable order.
	CategorySet []Category

	// Allocation is one category's slice of a month's budget.
	// Percentage is snapshotted from the category at plan creation time.
	Allocation struct {
		Percentage float64
		Allocated  Money
		Spent      Money
		Remaining  Money
	}

	// BudgetPlan is one month's materialized allocation.
	BudgetPlan struct {
		TotalIncome Money
		Categories  map[string]*Allocation
	}

	// Expense is a committed spending record. Immutable once created.
	Expense struct {
		ID          string
		Date        time.Time
		Category    string
		Amount      Money
		Description string
	}

	// Transaction is a parsed-but-not-yet-committed statement row.
	// Date is carried as the raw statement string and not validated here.
	Transaction struct {
		Description string
		Amount      Money
		Date        string
	}

	// MonthLedger is a month's plan plus its append-only expense list.
	MonthLedger struct {
		Key      string
		Created  time.Time
		Plan     BudgetPlan
		Expenses []Expense
	}
)

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCategoryName
	}
	if c.Percentage <= 0 {
		return ErrInvalidPercentage
	}
	return nil
}

// PercentageSum returns the total of all category percentages.
// The sum is conventionally 100 but never enforced; callers warn on deviation.
func (cs CategorySet) PercentageSum() float64 {
	var sum float64
	for _, c := range cs {
		sum += c.Percentage
	}
	return sum
}

// Lookup returns the category with the given name.
func (cs CategorySet) Lookup(name string) (Category, bool) {
	for _, c := range cs {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Add appends a category after validating it and rejecting duplicate names.
func (cs CategorySet) Add(c Category) (CategorySet, error) {
	if err := c.Validate(); err != nil {
		return cs, err
	}
	if _, ok := cs.Lookup(c.Name); ok {
		return cs, fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name)
	}
	return append(cs, c), nil
}

// Remove deletes the named category, preserving the order of the rest.
func (cs CategorySet) Remove(name string) (CategorySet, error) {
	for i, c := range cs {
		if c.Name == name {
			out := make(CategorySet, 0, len(cs)-1)
			out = append(out, cs[:i]...)
			return append(out, cs[i+1:]...), nil
		}
	}
	return cs, fmt.Errorf("%w: %s", ErrCategoryNotFound, name)
}

func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return errors.New("expense date cannot be zero")
	}
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("%w: empty", ErrUnknownCategory)
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

// ValidMonthKey reports whether key has the YYYY-MM shape used for ledgers.
func ValidMonthKey(key string) bool {
	if len(key) != 7 || key[4] != '-' {
		return false
	}
	if _, err := time.Parse("2006-01", key); err != nil {
		return false
	}
	return true
}

// MonthKey formats t as a ledger month key.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}
