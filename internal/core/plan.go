package core

import (
	"fmt"
	"math"
)

// NewBudgetPlan materializes a month's allocation from the category set and
// total income. Each category gets round(percentage/100 * income) cents,
// nothing spent, remaining equal to allocated. Percentages are snapshotted
// and are not required to sum to 100.
func NewBudgetPlan(cats CategorySet, totalIncome Money) (BudgetPlan, error) {
	if len(cats) == 0 {
		return BudgetPlan{}, ErrEmptyCategories
	}
	if totalIncome.Cents <= 0 {
		return BudgetPlan{}, fmt.Errorf("%w: total income must be positive", ErrInvalidAmount)
	}

	plan := BudgetPlan{
		TotalIncome: totalIncome,
		Categories:  make(map[string]*Allocation, len(cats)),
	}
	for _, c := range cats {
		allocated := roundCents(c.Percentage / 100.0 * float64(totalIncome.Cents))
		plan.Categories[c.Name] = &Allocation{
			Percentage: c.Percentage,
			Allocated:  Money{Cents: allocated},
			Spent:      Money{Cents: 0},
			Remaining:  Money{Cents: allocated},
		}
	}
	return plan, nil
}

// Commit applies an expense amount to a category, updating spent and
// remaining in one step. Remaining may go negative: over-budget is a
// reportable state, not an error.
func (p *BudgetPlan) Commit(category string, amount Money) error {
	alloc, ok := p.Categories[category]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
	}
	if amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	alloc.Spent.Cents += amount.Cents
	alloc.Remaining.Cents -= amount.Cents
	return nil
}

// TotalSpent sums spent cents across all categories.
func (p BudgetPlan) TotalSpent() Money {
	var cents int64
	for _, a := range p.Categories {
		cents += a.Spent.Cents
	}
	return Money{Cents: cents}
}

// TotalAllocated sums allocated cents across all categories.
func (p BudgetPlan) TotalAllocated() Money {
	var cents int64
	for _, a := range p.Categories {
		cents += a.Allocated.Cents
	}
	return Money{Cents: cents}
}

// PercentageSum returns the sum of the snapshotted category percentages.
func (p BudgetPlan) PercentageSum() float64 {
	var sum float64
	for _, a := range p.Categories {
		sum += a.Percentage
	}
	return sum
}

// Clone returns a deep copy of the plan. Imports stage their mutations on a
// copy so a failed persist leaves the caller's state untouched.
func (p BudgetPlan) Clone() BudgetPlan {
	out := BudgetPlan{
		TotalIncome: p.TotalIncome,
		Categories:  make(map[string]*Allocation, len(p.Categories)),
	}
	for name, a := range p.Categories {
		copied := *a
		out.Categories[name] = &copied
	}
	return out
}

// Commit records the expense in the ledger: the allocation update and the
// append happen together so a reader never sees one without the other.
func (l *MonthLedger) Commit(e Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := l.Plan.Commit(e.Category, e.Amount); err != nil {
		return err
	}
	l.Expenses = append(l.Expenses, e)
	return nil
}

// Clone returns a deep copy of the ledger.
func (l MonthLedger) Clone() MonthLedger {
	out := MonthLedger{
		Key:     l.Key,
		Created: l.Created,
		Plan:    l.Plan.Clone(),
	}
	if len(l.Expenses) > 0 {
		out.Expenses = make([]Expense, len(l.Expenses))
		copy(out.Expenses, l.Expenses)
	}
	return out
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
