// Package money holds the fixed-point helpers shared by rate derivation and price calculation.
package money

import "github.com/shopspring/decimal"

// Round2 rounds half-up to 2 decimal places. Inputs go through their shortest
// decimal representation so that 69.375 rounds to 69.38 rather than following
// the binary expansion of the float.
func Round2(v float64) float64 {
	return ToFloat(decimal.NewFromFloat(v).Round(2))
}

// MulRound2 multiplies a and b exactly and rounds the product half-up to 2 places.
func MulRound2(a, b float64) float64 {
	return ToFloat(decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(2))
}

// Factor multiplies v by a fixed decimal factor given as a string literal and
// rounds the result half-up to 2 places.
func Factor(v float64, factor decimal.Decimal) float64 {
	return ToFloat(decimal.NewFromFloat(v).Mul(factor).Round(2))
}

// Add sums the values without binary drift.
func Add(values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return ToFloat(sum)
}

// ToFloat converts a decimal to float64 for JSON and storage.
func ToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
