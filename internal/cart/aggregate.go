package cart

import (
	"github.com/etrshop/etr-brand/internal/domain"
	"github.com/shopspring/decimal"
)

// Count is the sum of line quantities.
func Count(c domain.Cart) int {
	n := 0
	for _, it := range c {
		n += it.Qty()
	}
	return n
}

// Total is the sum of price * quantity over all lines.
func Total(c domain.Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c {
		sum = sum.Add(it.Subtotal())
	}
	return sum
}

// FormatMoney renders amount as dollars with two decimals, rounding half away
// from zero at the second decimal.
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.Round(2).StringFixed(2)
}
