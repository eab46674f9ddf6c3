package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Monetary values (prices, notionals, commissions) are decimal.Decimal
// throughout: summing fill notionals in binary floating point drifts, and
// position totals must reconcile to the cent. Quantities stay int64 since
// the engine deals in whole shares/contracts.

// Notional returns quantity × price.
func Notional(quantity int64, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}

// RoundToTick rounds value to the nearest multiple of tick. It is applied
// only at the commission boundary; aggregation totals are never rounded.
func RoundToTick(value, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return value
	}
	return value.Div(tick).Round(0).Mul(tick)
}

// Commission computes the charge for a filled quantity at a per-share
// rate, rounded to the instrument's minimum tick.
func Commission(filledQuantity int64, perShare, tick decimal.Decimal) decimal.Decimal {
	return RoundToTick(perShare.Mul(decimal.NewFromInt(filledQuantity)), tick)
}

// ParsePrice parses a decimal price string, requiring a strictly positive
// value. Used at the handler boundary before anything enters the core.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("invalid price %q", s)}
	}
	if !d.IsPositive() {
		return decimal.Zero, &ValidationError{Message: fmt.Sprintf("price must be positive, got %s", d)}
	}
	return d, nil
}
