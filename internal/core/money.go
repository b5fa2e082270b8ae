// Package core holds the ledger's domain types, input validation and the
// month rollover reconciliation.
//
// This file contains amount parsing. Amounts are exact decimals; rounding to
// whole units happens only when values are displayed.
package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts fit a DECIMAL(20,8) column: at most 12 integer and 8 fractional digits.
const (
	maxIntegerDigits    = 12
	maxFractionalDigits = 8
)

var amountPattern = regexp.MustCompile(fmt.Sprintf(`^\d{1,%d}(?:[.,]\d{1,%d})?$`, maxIntegerDigits, maxFractionalDigits))

// ParseAmount converts user input into a positive decimal amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Empty input, non-numeric input, exponent notation, more digits than an
// amount can hold, zero and negative values are rejected with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("1000")    -> 1000, nil
//	ParseAmount("12,50")   -> 12.5, nil
//	ParseAmount("0")       -> error
//	ParseAmount("-3")      -> error
//	ParseAmount("1e5")     -> error
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// SumEarnings adds up the amounts of all earnings.
func SumEarnings(items []Earning) decimal.Decimal {
	total := decimal.Zero
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total
}

// SumExpenditures adds up the amounts of all expenditures.
func SumExpenditures(items []Expenditure) decimal.Decimal {
	total := decimal.Zero
	for _, e := range items {
		total = total.Add(e.Amount)
	}
	return total
}
