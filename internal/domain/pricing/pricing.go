// Package pricing turns a cart and an optional promo code into the four
// reconciled totals of an order. The same Engine serves the cart preview and
// the checkout commit, so both paths always agree.
package pricing

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promo"
)

// ErrNegativeTotal is returned when the totals would not reconcile to a
// non-negative amount. It signals a broken discount cap, not bad input.
var ErrNegativeTotal = errors.New("order total is negative")

// Line is a cart line bound to the unit price in effect when it was priced.
type Line struct {
	ProductID string
	Size      cart.Size
	Quantity  int
	UnitPrice money.Money
}

// Amount returns Quantity * UnitPrice.
func (l Line) Amount() money.Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Pricing is the outcome of pricing one cart.
// Total == Subtotal + ShippingFee - Discount and Discount <= Subtotal.
type Pricing struct {
	Subtotal    money.Money
	ShippingFee money.Money
	Discount    money.Money
	Total       money.Money
}

// Lines binds cart lines to current product prices. Every line must have a
// product in products.
func Lines(c *cart.Cart, products map[string]product.Product) ([]Line, error) {
	lines := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			return nil, errors.Wrapf(product.ErrNotFound, "cart line %s", l.ProductID)
		}
		lines = append(lines, Line{
			ProductID: l.ProductID,
			Size:      l.Size,
			Quantity:  l.Quantity,
			UnitPrice: p.UnitPrice(),
		})
	}
	return lines, nil
}

// Engine prices carts under a fixed shipping policy.
type Engine struct {
	ShippingFee money.Money
}

// Subtotal sums the line amounts.
func Subtotal(lines []Line) money.Money {
	var subtotal money.Money
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}
	return subtotal
}

// Price computes the totals for lines. A nil code means no discount. Price
// is pure: equal inputs give equal outputs.
func (e Engine) Price(lines []Line, code *promo.Code, now time.Time) (Pricing, error) {
	p := Pricing{Subtotal: Subtotal(lines)}
	if len(lines) > 0 {
		p.ShippingFee = e.ShippingFee
	}
	if code != nil {
		d, err := promo.Materialize(code, p.Subtotal, now)
		if err != nil {
			return Pricing{}, err
		}
		p.Discount = d.Amount
	}
	p.Total = p.Subtotal.Add(p.ShippingFee).Sub(p.Discount)
	if p.Total.IsNegative() {
		return Pricing{}, errors.Wrapf(ErrNegativeTotal, "subtotal %s shipping %s discount %s",
			p.Subtotal, p.ShippingFee, p.Discount)
	}
	return p, nil
}
