// Package renderer formats budget data as markdown, ready for terminal
// rendering. Amounts are displayed with their currency's own grouping,
// fraction and symbol rules.
package renderer

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount formats a decimal major-unit value in the given currency, e.g.
// "€1,234.50" for EUR.
func Amount(v decimal.Decimal, currency string) string {
	// The constructor is the only way to get a never-nil currency.
	cur := money.New(0, currency).Currency()
	return cur.Formatter().Format(v.Shift(int32(cur.Fraction)).IntPart())
}

// SignedAmount is Amount with an explicit plus sign on positive values, and
// "-" for zero.
func SignedAmount(v decimal.Decimal, currency string) string {
	if v.IsZero() {
		return "-"
	}
	if v.IsPositive() {
		return "+" + Amount(v, currency)
	}
	return Amount(v, currency)
}

// builder accumulates a markdown document.
type builder struct {
	strings.Builder
	currency string
}

func (b *builder) Printf(format string, args ...any) {
	fmt.Fprintf(b, format, args...)
}

func (b *builder) amount(v decimal.Decimal) string       { return Amount(v, b.currency) }
func (b *builder) signedAmount(v decimal.Decimal) string { return SignedAmount(v, b.currency) }
