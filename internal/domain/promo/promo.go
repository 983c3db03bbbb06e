package promo

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// Kind discriminates the discount payload of a Code.
type Kind string

const (
	// KindPercentage takes a percentage (0–100) off the subtotal.
	KindPercentage Kind = "percentage"
	// KindFixed takes a fixed amount off the subtotal, capped at the subtotal.
	KindFixed Kind = "fixed"
)

// Granularity is the resolution at which a code's validity window is
// compared against the clock.
type Granularity string

const (
	// GranularityInstant compares full timestamps.
	GranularityInstant Granularity = "instant"
	// GranularityDay compares calendar dates in the code's location; both
	// window ends are inclusive.
	GranularityDay Granularity = "day"
)

// Origin names the legacy registry a code was loaded from.
type Origin string

const (
	OriginCoupon       Origin = "coupon"
	OriginDiscountCode Origin = "discount_code"
)

var (
	// ErrNotFound is returned when no registry knows the code.
	ErrNotFound = errors.New("promo code not found")
	// ErrExpired is returned when the clock is outside the code's window.
	ErrExpired = errors.New("promo code expired")
	// ErrInvalidWindow is returned for a code whose window ends before it starts.
	ErrInvalidWindow = errors.New("promo code window ends before it starts")
	// ErrInvalidValue is returned for a percentage outside 0–100, a negative
	// fixed amount, or a record that carries no discount at all.
	ErrInvalidValue = errors.New("promo code has no valid discount value")
)

var hundred = decimal.NewFromInt(100)

// Code is the unified promo code. Exactly one of Percentage or Amount is
// meaningful, selected by Kind.
type Code struct {
	Code        string
	Kind        Kind
	Percentage  decimal.Decimal
	Amount      money.Money
	ValidFrom   time.Time
	ValidTo     time.Time
	Granularity Granularity
	// Location is used for GranularityDay comparisons. Nil means UTC.
	Location *time.Location
	Origin   Origin
}

// Discount is a materialized promo: the amount it takes off one subtotal.
type Discount struct {
	Code   string
	Kind   Kind
	Amount money.Money
}

// Registry looks up codes case-insensitively across all legacy registries.
// It returns ErrNotFound when nothing matches.
type Registry interface {
	FindByCode(ctx context.Context, code string) (*Code, error)
}

// Normalize canonicalizes user input into the registry key form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate checks the structural invariants of c.
func (c *Code) Validate() error {
	if c.ValidTo.Before(c.ValidFrom) {
		return errors.Wrapf(ErrInvalidWindow, "code %s", c.Code)
	}
	switch c.Kind {
	case KindPercentage:
		if c.Percentage.IsNegative() || c.Percentage.GreaterThan(hundred) {
			return errors.Wrapf(ErrInvalidValue, "code %s: percentage %s", c.Code, c.Percentage)
		}
	case KindFixed:
		if c.Amount.IsNegative() {
			return errors.Wrapf(ErrInvalidValue, "code %s: amount %s", c.Code, c.Amount)
		}
	default:
		return errors.Wrapf(ErrInvalidValue, "code %s: unknown kind %q", c.Code, c.Kind)
	}
	return nil
}

// ActiveAt reports whether now falls inside the code's window at its
// declared granularity.
func (c *Code) ActiveAt(now time.Time) bool {
	if c.Granularity == GranularityDay {
		loc := c.Location
		if loc == nil {
			loc = time.UTC
		}
		day := truncateDay(now, loc)
		return !day.Before(truncateDay(c.ValidFrom, loc)) && !day.After(truncateDay(c.ValidTo, loc))
	}
	return !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}

func truncateDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
