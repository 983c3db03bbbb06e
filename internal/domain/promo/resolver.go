package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/money"
)

// Resolver looks promo codes up in a Registry and materializes them.
type Resolver struct {
	registry Registry
}

// NewResolver creates a Resolver backed by the given Registry.
func NewResolver(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Lookup returns the unified code for raw user input. Blank input is
// ErrNotFound; no other code is ever substituted.
func (r *Resolver) Lookup(ctx context.Context, raw string) (*Code, error) {
	key := Normalize(raw)
	if key == "" {
		return nil, ErrNotFound
	}
	c, err := r.registry.FindByCode(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}
	return c, nil
}

// Resolve looks up code and computes its discount on subtotal at now.
func (r *Resolver) Resolve(ctx context.Context, code string, subtotal money.Money, now time.Time) (Discount, error) {
	c, err := r.Lookup(ctx, code)
	if err != nil {
		return Discount{}, err
	}
	return Materialize(c, subtotal, now)
}
