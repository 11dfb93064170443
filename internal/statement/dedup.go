package statement

import (
	"strings"

	"budget/internal/core"
)

// Partition splits candidates into duplicates of existing expenses and new
// transactions, both preserving input order.
//
// A candidate is a duplicate iff some existing expense matches its
// description case-insensitively and its amount to the cent. Candidates are
// only compared against the existing ledger, never against each other: two
// identical rows in one batch both come back as new.
func Partition(candidates []core.Transaction, existing []core.Expense) (duplicates, fresh []core.Transaction) {
	for _, cand := range candidates {
		if isDuplicate(cand, existing) {
			duplicates = append(duplicates, cand)
		} else {
			fresh = append(fresh, cand)
		}
	}
	return duplicates, fresh
}

func isDuplicate(cand core.Transaction, existing []core.Expense) bool {
	for _, e := range existing {
		// Amounts are integral cents, so the original "differs by less
		// than 0.01" tolerance is exact equality here.
		if e.Amount.Cents == cand.Amount.Cents &&
			strings.EqualFold(e.Description, cand.Description) {
			return true
		}
	}
	return false
}
