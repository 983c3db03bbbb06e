package promo

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Coupon is the legacy coupon registry record: a percentage discount valid
// between two timestamps.
type Coupon struct {
	Code      string          `json:"code"`
	Discount  decimal.Decimal `json:"discount"`
	ValidFrom time.Time       `json:"valid_from"`
	ValidTo   time.Time       `json:"valid_to"`
	Active    bool            `json:"active"`
}

// DiscountCode is the legacy discount-code registry record: either a
// percentage or a fixed amount, valid between two calendar dates.
type DiscountCode struct {
	Code               string              `json:"code"`
	DiscountPercentage decimal.NullDecimal `json:"discount_percentage"`
	DiscountAmount     *money.Money        `json:"discount_amount"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            time.Time           `json:"end_date"`
}

// FromCoupon converts a coupon record into a Code compared at full
// timestamp resolution.
func FromCoupon(c Coupon) (Code, error) {
	code := Code{
		Code:        Normalize(c.Code),
		Kind:        KindPercentage,
		Percentage:  c.Discount,
		ValidFrom:   c.ValidFrom,
		ValidTo:     c.ValidTo,
		Granularity: GranularityInstant,
		Origin:      OriginCoupon,
	}
	if err := code.Validate(); err != nil {
		return Code{}, err
	}
	return code, nil
}

// FromDiscountCode converts a discount-code record into a Code compared by
// calendar day in loc. A positive percentage takes precedence over an
// amount, matching the legacy checkout.
func FromDiscountCode(d DiscountCode, loc *time.Location) (Code, error) {
	code := Code{
		Code:        Normalize(d.Code),
		ValidFrom:   d.StartDate,
		ValidTo:     d.EndDate,
		Granularity: GranularityDay,
		Location:    loc,
		Origin:      OriginDiscountCode,
	}
	switch {
	case d.DiscountPercentage.Valid && d.DiscountPercentage.Decimal.IsPositive():
		code.Kind = KindPercentage
		code.Percentage = d.DiscountPercentage.Decimal
	case d.DiscountAmount != nil && *d.DiscountAmount > 0:
		code.Kind = KindFixed
		code.Amount = *d.DiscountAmount
	default:
		return Code{}, errors.Wrapf(ErrInvalidValue, "discount code %s", code.Code)
	}
	if err := code.Validate(); err != nil {
		return Code{}, err
	}
	return code, nil
}
