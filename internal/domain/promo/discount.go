package promo

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/money"
)

// Materialize computes the discount c grants on subtotal at now. It is a pure
// function: preview and checkout both call it and must agree.
//
// The result never exceeds subtotal.
func Materialize(c *Code, subtotal money.Money, now time.Time) (Discount, error) {
	if !c.ActiveAt(now) {
		return Discount{}, ErrExpired
	}
	if subtotal.IsNegative() {
		return Discount{}, errors.Errorf("negative subtotal %s", subtotal)
	}

	var amount money.Money
	switch c.Kind {
	case KindPercentage:
		// subtotal * pct / 100, exact in decimal, then floored to whole units.
		amount = money.FloorDecimal(subtotal.Decimal().Mul(c.Percentage).Shift(-2))
	case KindFixed:
		amount = c.Amount
	default:
		return Discount{}, errors.Errorf("unsupported promo kind: %q", c.Kind)
	}

	if amount.IsNegative() {
		amount = money.Zero
	}
	amount = money.Min(amount, subtotal)

	return Discount{
		Code:   c.Code,
		Kind:   c.Kind,
		Amount: amount,
	}, nil
}
