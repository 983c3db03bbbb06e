// Package money provides the fixed-point monetary amount used by every
// pricing computation in the storefront.
package money

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// Money is an amount expressed as an integer count of the currency's minor
// unit. The storefront prices in VND, which has no fractional unit, so one
// Money unit is one đồng.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// FromInt64 returns m as Money.
func FromInt64(m int64) Money { return Money(m) }

// Int64 returns the raw minor-unit count.
func (m Money) Int64() int64 { return int64(m) }

// Add returns m + o.
func (m Money) Add(o Money) Money { return m + o }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return m - o }

// Times returns m multiplied by a quantity.
func (m Money) Times(qty int) Money { return m * Money(qty) }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m < 0 }

// IsZero reports whether m == 0.
func (m Money) IsZero() bool { return m == 0 }

// Decimal converts m into a decimal for fractional arithmetic.
func (m Money) Decimal() decimal.Decimal { return decimal.NewFromInt(int64(m)) }

// String renders the minor-unit count. Currency formatting belongs to the
// presentation layer.
func (m Money) String() string { return strconv.FormatInt(int64(m), 10) }

// Min returns the smaller of a and b.
func Min(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}

// FloorDecimal truncates d toward negative infinity into whole minor units.
func FloorDecimal(d decimal.Decimal) Money {
	return Money(d.Floor().IntPart())
}

// Sum adds all amounts.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
