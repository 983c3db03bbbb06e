package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMoney_Arithmetic(t *testing.T) {
	price := Money(100000)

	assert.Equal(t, Money(200000), price.Times(2))
	assert.Equal(t, Money(130000), price.Add(30000))
	assert.Equal(t, Money(-1), Zero.Sub(1))
	assert.True(t, Zero.Sub(1).IsNegative())
	assert.True(t, Zero.IsZero())
	assert.Equal(t, Money(6), Sum(1, 2, 3))
	assert.Equal(t, Money(5), Min(5, 9))
	assert.Equal(t, Money(5), Min(9, 5))
	assert.Equal(t, "230000", Money(230000).String())
}

func TestFloorDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{in: "20000", want: 20000},
		{in: "3333.9", want: 3333},
		{in: "0.999", want: 0},
		{in: "-0.5", want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FloorDecimal(decimal.RequireFromString(tt.in)))
		})
	}
}

func TestMoney_Decimal(t *testing.T) {
	assert.True(t, decimal.NewFromInt(123).Equal(Money(123).Decimal()))
}
