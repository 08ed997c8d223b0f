// Package core holds the ledger domain: entries, filters and aggregation.
package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in integer cents. Calculations stay in cents to avoid
// floating-point drift; conversion happens only at the parsing edge.
type Money struct {
	Cents int64
}

var centsPerUnit = decimal.NewFromInt(100)

var errBadAmount = errors.New("invalid amount")

// ParseCents converts a decimal amount string to cents with half-up
// rounding on the third decimal place. Negative amounts are rejected;
// zero is allowed, so the function also serves filter bounds.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, errBadAmount
	}
	if d.IsNegative() {
		return 0, errBadAmount
	}
	cents := d.Mul(centsPerUnit).Round(0)
	if !cents.BigInt().IsInt64() {
		return 0, errBadAmount
	}
	return cents.IntPart(), nil
}

// ParseAmount parses an entry amount. Amounts must be strictly positive:
// an entry's amount always contributes positively to its type's total.
func ParseAmount(s string) (Money, error) {
	if strings.TrimSpace(s) == "" {
		return Money{}, Invalid("amount", "required")
	}
	cents, err := ParseCents(s)
	if err != nil {
		return Money{}, Invalid("amount", "not a valid number")
	}
	if cents <= 0 {
		return Money{}, Invalid("amount", "must be greater than zero")
	}
	return Money{Cents: cents}, nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return Invalid("amount", "must be greater than zero")
	}
	return nil
}

// FormatCents renders cents as a decimal unit amount, e.g. 1234 -> "12.34".
// The rendering is exact and round-trips through ParseCents. Negative
// values are allowed so derived balances can use it too.
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).String()
}

// String renders the amount in whole units, e.g. "12.34".
func (m Money) String() string {
	return FormatCents(m.Cents)
}
