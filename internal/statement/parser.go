// Package statement turns bank-exported CSV activity into candidate
// transactions and partitions them against an existing expense ledger.
//
// Two header conventions are recognized: checking-style exports
// (Details, Posting Date, Description, Amount, Type) and the shorter
// card-style exports (Date, Description, Amount). Malformed rows are
// skipped with a warning, never failing the batch.
package statement

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"budget/internal/core"
)

// excludedTypes are statement Type values that mark non-expense activity.
var excludedTypes = map[string]struct{}{
	"CREDIT":     {},
	"DEPOSIT":    {},
	"ACH_CREDIT": {},
	"DSLIP":      {},
}

// Parse reads comma-delimited statement text and returns candidate expense
// transactions in source row order. Credits, deposits, and rows that cannot
// be understood are filtered out; an empty result is a normal outcome.
func Parse(ctx context.Context, r io.Reader) ([]core.Transaction, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comma = ','

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read statement header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	var transactions []core.Transaction
	for {
		record, readErr := reader.Read()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			var parseErr *csv.ParseError
			if errors.As(readErr, &parseErr) {
				slog.WarnContext(ctx, "Skipping malformed statement row", "error", readErr)
				continue
			}
			return nil, fmt.Errorf("read statement row: %w", readErr)
		}

		description := fieldByAlias(record, colIndex, "description", "details")
		if description == "" {
			continue
		}

		amountStr := fieldByAlias(record, colIndex, "amount")
		signedCents, parseErr := core.ParseSignedCents(amountStr)
		if parseErr != nil {
			slog.WarnContext(ctx, "Skipping row with unparseable amount",
				"amount", amountStr, "description", description)
			continue
		}

		// Non-negative amounts are income or refunds, not expenses.
		if signedCents >= 0 {
			continue
		}

		transType := strings.ToUpper(strings.TrimSpace(fieldByAlias(record, colIndex, "type")))
		if _, excluded := excludedTypes[transType]; excluded {
			continue
		}

		transactions = append(transactions, core.Transaction{
			Description: description,
			Amount:      core.Money{Cents: -signedCents},
			Date:        fieldByAlias(record, colIndex, "posting date", "date"),
		})
	}

	return transactions, nil
}

// fieldByAlias returns the first non-empty value among the named columns.
func fieldByAlias(record []string, colIndex map[string]int, names ...string) string {
	for _, name := range names {
		idx, ok := colIndex[name]
		if !ok {
			continue
		}
		if v := safeGet(record, idx); v != "" {
			return v
		}
	}
	return ""
}

// safeGet retrieves record[index] safely.
func safeGet(record []string, index int) string {
	if index < len(record) {
		return strings.TrimSpace(record[index])
	}
	return ""
}
