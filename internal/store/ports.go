// Package store defines the persistence ports for ledgers, categories, and
// categorization rules, plus a factory selecting the configured backend.
package store

import (
	"context"

	"budget/internal/core"
	"budget/internal/rules"
)

// Ports for persistence backends.
type (
	// MonthStore persists month ledgers. SaveMonth replaces a month's
	// plan and expenses in one atomic step; a failed save must leave the
	// stored state untouched.
	MonthStore interface {
		// CreateMonth stores a new ledger, failing with
		// core.ErrMonthExists when the key is already tracked.
		CreateMonth(ctx context.Context, ledger core.MonthLedger) error

		// GetMonth returns the ledger for a month key, or
		// core.ErrMonthNotFound.
		GetMonth(ctx context.Context, key string) (core.MonthLedger, error)

		// SaveMonth atomically replaces an existing month's state.
		SaveMonth(ctx context.Context, ledger core.MonthLedger) error

		// ListMonthKeys returns all tracked month keys in ascending order.
		ListMonthKeys(ctx context.Context) ([]string, error)
	}

	CategoryStore interface {
		GetCategories(ctx context.Context) (core.CategorySet, error)
		SaveCategories(ctx context.Context, cats core.CategorySet) error
	}

	RuleStore interface {
		GetRules(ctx context.Context) (rules.RuleSet, error)
		SaveRules(ctx context.Context, rs rules.RuleSet) error
	}
)

// Stores is the unified persistence surface a backend provides.
type Stores interface {
	MonthStore
	CategoryStore
	RuleStore
}
