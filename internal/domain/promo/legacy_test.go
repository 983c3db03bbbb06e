package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/money"
)

func TestFromCoupon(t *testing.T) {
	c, err := FromCoupon(Coupon{
		Code:      "summer10",
		Discount:  d("10"),
		ValidFrom: yesterday,
		ValidTo:   tomorrow,
		Active:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "SUMMER10", c.Code)
	assert.Equal(t, KindPercentage, c.Kind)
	assert.Equal(t, GranularityInstant, c.Granularity)
	assert.Equal(t, OriginCoupon, c.Origin)
	assert.True(t, d("10").Equal(c.Percentage))
}

func TestFromCoupon_ReversedWindow(t *testing.T) {
	_, err := FromCoupon(Coupon{Code: "X", Discount: d("5"), ValidFrom: tomorrow, ValidTo: yesterday})
	require.ErrorIs(t, err, ErrInvalidWindow)
}

func TestFromDiscountCode(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	amount := money.Money(50000)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, loc)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, loc)

	tests := []struct {
		name       string
		in         DiscountCode
		wantKind   Kind
		wantAmount money.Money
		wantPct    string
		wantErr    error
	}{
		{
			name: "percentage only",
			in: DiscountCode{Code: "dc15", StartDate: start, EndDate: end,
				DiscountPercentage: decimal.NewNullDecimal(d("15"))},
			wantKind: KindPercentage,
			wantPct:  "15",
		},
		{
			name:       "amount only",
			in:         DiscountCode{Code: "dc50k", StartDate: start, EndDate: end, DiscountAmount: &amount},
			wantKind:   KindFixed,
			wantAmount: 50000,
		},
		{
			name: "percentage wins over amount",
			in: DiscountCode{Code: "both", StartDate: start, EndDate: end,
				DiscountPercentage: decimal.NewNullDecimal(d("20")), DiscountAmount: &amount},
			wantKind: KindPercentage,
			wantPct:  "20",
		},
		{
			name:    "no discount at all",
			in:      DiscountCode{Code: "empty", StartDate: start, EndDate: end},
			wantErr: ErrInvalidValue,
		},
		{
			name: "end before start",
			in: DiscountCode{Code: "rev", StartDate: end, EndDate: start,
				DiscountAmount: &amount},
			wantErr: ErrInvalidWindow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := FromDiscountCode(tt.in, loc)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, c.Kind)
			assert.Equal(t, GranularityDay, c.Granularity)
			assert.Equal(t, OriginDiscountCode, c.Origin)
			assert.Equal(t, loc, c.Location)
			if tt.wantPct != "" {
				assert.True(t, d(tt.wantPct).Equal(c.Percentage))
			} else {
				assert.Equal(t, tt.wantAmount, c.Amount)
			}
		})
	}
}

func TestFromDiscountCode_ValidThroughEndDate(t *testing.T) {
	loc := time.FixedZone("ICT", 7*60*60)
	amount := money.Money(1000)
	c, err := FromDiscountCode(DiscountCode{
		Code:           "LASTDAY",
		StartDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, loc),
		EndDate:        time.Date(2025, 6, 15, 0, 0, 0, 0, loc),
		DiscountAmount: &amount,
	}, loc)
	require.NoError(t, err)

	lateOnEndDate := time.Date(2025, 6, 15, 23, 30, 0, 0, loc)
	got, err := Materialize(&c, 10000, lateOnEndDate)
	require.NoError(t, err)
	assert.Equal(t, money.Money(1000), got.Amount)

	_, err = Materialize(&c, 10000, lateOnEndDate.Add(time.Hour))
	require.ErrorIs(t, err, ErrExpired)
}
