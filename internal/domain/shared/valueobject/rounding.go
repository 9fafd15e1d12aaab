package valueobject

import "github.com/shopspring/decimal"

// MinorUnitPlaces is the number of decimal places monetary amounts are
// rounded to. Quantities and rates keep their full precision; only derived
// amounts are rounded.
const MinorUnitPlaces int32 = 2

// RoundHalfUp rounds an amount to minor units, halves away from zero
func RoundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnitPlaces)
}

// Percent returns pct percent of base, unrounded
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(decimal.NewFromInt(100))
}
