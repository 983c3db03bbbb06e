package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promo"
)

// Quote is a priced snapshot of a user's cart.
type Quote struct {
	UserID  string
	Lines   []Line
	Pricing Pricing
	// Promo is the resolved code, nil when none was given.
	Promo *promo.Code
}

// Quoter prices the live cart of a user.
type Quoter struct {
	carts    cart.Repository
	products product.Repository
	promos   *promo.Resolver
	engine   Engine
	now      func() time.Time
}

// NewQuoter creates a Quoter. The clock defaults to time.Now.
func NewQuoter(
	carts cart.Repository,
	products product.Repository,
	promos *promo.Resolver,
	engine Engine,
) *Quoter {
	return &Quoter{
		carts:    carts,
		products: products,
		promos:   promos,
		engine:   engine,
		now:      time.Now,
	}
}

// WithClock overrides the clock used to check promo windows.
func (q *Quoter) WithClock(now func() time.Time) *Quoter {
	q.now = now
	return q
}

// Quote loads the user's cart and current prices and applies code. An
// empty code means no promo; an unknown or expired code is an error.
func (q *Quoter) Quote(ctx context.Context, userID, code string) (*Quote, error) {
	c, err := q.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return q.QuoteCart(ctx, c, code)
}

// QuoteCart prices an already loaded cart.
func (q *Quoter) QuoteCart(ctx context.Context, c *cart.Cart, code string) (*Quote, error) {
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	var products []product.Product
	if len(ids) > 0 {
		var err error
		products, err = q.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, errors.Wrap(err, "get products")
		}
	}
	lines, err := Lines(c, product.Index(products))
	if err != nil {
		return nil, err
	}

	var resolved *promo.Code
	if promo.Normalize(code) != "" {
		resolved, err = q.promos.Lookup(ctx, code)
		if err != nil {
			return nil, err
		}
	}

	p, err := q.engine.Price(lines, resolved, q.now())
	if err != nil {
		return nil, err
	}
	return &Quote{UserID: c.UserID, Lines: lines, Pricing: p, Promo: resolved}, nil
}
