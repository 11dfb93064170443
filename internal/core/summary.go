package core

import "sort"

// CategoryRow is one category's line in a month summary.
type CategoryRow struct {
	Name       string
	Percentage float64
	Allocated  Money
	Spent      Money
	Remaining  Money
}

// MonthSummary is a read-only snapshot of one month's budget state.
type MonthSummary struct {
	Key            string
	TotalIncome    Money
	TotalAllocated Money
	TotalSpent     Money
	TotalRemaining Money
	PercentageSum  float64
	Categories     []CategoryRow
	ExpenseCount   int
}

// Overview aggregates across all tracked months.
type Overview struct {
	MonthsTracked int
	TotalIncome   Money
	AverageIncome Money
}

// Summarize builds a month summary with categories in name order.
func Summarize(l MonthLedger) MonthSummary {
	s := MonthSummary{
		Key:            l.Key,
		TotalIncome:    l.Plan.TotalIncome,
		TotalAllocated: l.Plan.TotalAllocated(),
		TotalSpent:     l.Plan.TotalSpent(),
		PercentageSum:  l.Plan.PercentageSum(),
		ExpenseCount:   len(l.Expenses),
	}
	s.TotalRemaining = Money{Cents: s.TotalIncome.Cents - s.TotalSpent.Cents}

	names := make([]string, 0, len(l.Plan.Categories))
	for name := range l.Plan.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		a := l.Plan.Categories[name]
		s.Categories = append(s.Categories, CategoryRow{
			Name:       name,
			Percentage: a.Percentage,
			Allocated:  a.Allocated,
			Spent:      a.Spent,
			Remaining:  a.Remaining,
		})
	}
	return s
}

// NewOverview aggregates the given incomes, one per tracked month.
func NewOverview(incomes []Money) Overview {
	o := Overview{MonthsTracked: len(incomes)}
	for _, m := range incomes {
		o.TotalIncome.Cents += m.Cents
	}
	if o.MonthsTracked > 0 {
		o.AverageIncome = Money{Cents: o.TotalIncome.Cents / int64(o.MonthsTracked)}
	}
	return o
}
