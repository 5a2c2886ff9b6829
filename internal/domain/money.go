package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// maxCents is 2^63, the first float64 beyond the int64 range.
const maxCents = float64(math.MaxInt64)

// DollarsToCents converts a float64 dollar amount to int64 cents.
// It validates that the input has at most 2 decimal places and returns
// an error if more precision is provided. Amounts that do not fit in
// int64 cents return ErrAmountOutOfRange.
func DollarsToCents(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f*100) >= maxCents {
		return 0, fmt.Errorf("%w: %v", ErrAmountOutOfRange, f)
	}
	// Round to avoid floating-point artifacts (e.g., 1.10 * 1000 = 1099.9999...).
	scaled := math.Round(f * 1000)
	if math.Mod(scaled, 10) != 0 {
		return 0, fmt.Errorf("monetary values must have at most 2 decimal places")
	}
	return int64(math.Round(f * 100)), nil
}

// CheckedAdd returns a+b, or false if the sum overflows int64.
func CheckedAdd(a, b int64) (int64, bool) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, false
	}
	return a + b, true
}

// CheckedMul returns a*b for non-negative operands, or false if the
// product overflows int64.
func CheckedMul(a, b int64) (int64, bool) {
	if a < 0 || b < 0 {
		return 0, false
	}
	if a != 0 && b > math.MaxInt64/a {
		return 0, false
	}
	return a * b, true
}

// CentsToDollars converts an int64 cents value to a float64 dollar amount.
func CentsToDollars(c int64) float64 {
	return float64(c) / 100.0
}

// RoundCents rounds a fractional cents amount half away from zero.
func RoundCents(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// DecimalCentsToDollars converts a fractional cents amount to dollars
// rounded to two decimal places.
func DecimalCentsToDollars(d decimal.Decimal) float64 {
	f, _ := d.Div(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

// Percent returns part/whole*100 rounded to two decimal places, or zero
// when whole is not positive.
func Percent(part, whole decimal.Decimal) float64 {
	if !whole.IsPositive() {
		return 0
	}
	f, _ := part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}
