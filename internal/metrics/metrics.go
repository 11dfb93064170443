// Package metrics exposes Prometheus counters for budget operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExpensesCommitted counts expenses committed to a month, by category.
	ExpensesCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_expenses_committed_total",
			Help: "Number of expenses committed to monthly budgets",
		},
		[]string{"category"},
	)

	// ImportedTransactions counts statement rows by import outcome.
	ImportedTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_import_transactions_total",
			Help: "Statement transactions processed during imports, by outcome",
		},
		[]string{"outcome"},
	)

	// ImportBatches counts whole statement imports by result.
	ImportBatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budget_import_batches_total",
			Help: "Statement import batches, by result",
		},
		[]string{"result"},
	)
)

// Import outcome label values.
const (
	OutcomeImported   = "imported"
	OutcomeDuplicate  = "duplicate"
	OutcomeUnresolved = "unresolved"

	ResultCommitted = "committed"
	ResultRejected  = "rejected"
)
