// Package format renders ledger amounts for display.
package format

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money formats amounts as whole currency units with locale digit grouping.
// Stored amounts are never rounded; only the rendered string is.
type Money struct {
	unit    currency.Unit
	symbol  string
	printer *message.Printer
}

// NewMoney builds a formatter for an ISO 4217 code, a display symbol and a
// BCP 47 locale.
func NewMoney(code, symbol, locale string) (*Money, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("currency %q: %w", code, err)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("locale %q: %w", locale, err)
	}
	return &Money{unit: unit, symbol: symbol, printer: message.NewPrinter(tag)}, nil
}

// Code returns the ISO currency code.
func (m *Money) Code() string {
	return m.unit.String()
}

// Format rounds d half away from zero to a whole unit, e.g. 1234.5 → "$1,235".
func (m *Money) Format(d decimal.Decimal) string {
	whole := d.Round(0)
	sign := ""
	if whole.IsNegative() {
		sign = "-"
		whole = whole.Neg()
	}
	return sign + m.symbol + m.printer.Sprintf("%d", whole.IntPart())
}
