// Package core holds the typed budget domain: money, categories, plans,
// expenses, and the allocation arithmetic that keeps them consistent.
//
// Amounts are carried as int64 cents throughout; strings are parsed with
// half-up rounding on the third decimal place.
package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in cents.
type Money struct {
	Cents int64
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Dollars returns the decimal value as a float64 for display purposes.
// Use cents for all calculations.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount with two decimals, e.g. "1234.56" or "-42.10".
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// MarshalJSON renders the amount as a decimal string, e.g. "1234.56".
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts either a decimal string or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	cents, err := ParseSignedCents(s)
	if err != nil {
		return err
	}
	m.Cents = cents
	return nil
}

// FromDollars converts a decimal dollar value to cents with half-up rounding.
func FromDollars(v float64) Money {
	if v >= 0 {
		return Money{Cents: int64(v*100 + 0.5)}
	}
	return Money{Cents: -int64(-v*100 + 0.5)}
}

// ParseDecimalToCents converts a positive decimal string to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// performs half-up rounding on the third decimal place. Returns an error for
// invalid formats, negative values, or zero amounts.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	// Decimal comma is normalized; bare comma thousands separators are not
	// expected on the manual-entry path.
	s = strings.ReplaceAll(s, ",", ".")
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseSignedCents converts a signed statement amount to cents.
//
// Statement exports use comma thousands separators and a leading minus for
// debits ("-1,234.56"). The sign is preserved; zero is a valid value here
// because filtering of non-expense rows happens at the statement layer.
func ParseSignedCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")
	cents, err := parseCents(s)
	if err != nil {
		return 0, err
	}
	if neg {
		cents = -cents
	}
	return cents, nil
}

// parseCents parses an unsigned dot-decimal string into cents, rounding
// half-up on the third decimal digit.
func parseCents(s string) (int64, error) {
	if s == "" {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100.
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}
