// Package cart holds the per-user shopping cart: one line per product and
// size, merged on add.
package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// Size is a garment size a cart line can be ordered in.
type Size string

const (
	SizeS  Size = "S"
	SizeM  Size = "M"
	SizeL  Size = "L"
	SizeXL Size = "XL"
)

// Valid reports whether s is one of the sizes the catalog sells.
func (s Size) Valid() bool {
	switch s {
	case SizeS, SizeM, SizeL, SizeXL:
		return true
	}
	return false
}

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidSize     = errors.New("size must be one of S, M, L, XL")
	ErrLineNotFound    = errors.New("cart line not found")
)

// Line is one product in one size with a quantity.
type Line struct {
	ProductID string
	Size      Size
	Quantity  int
}

// Key identifies a line inside a cart.
type Key struct {
	ProductID string
	Size      Size
}

// Key returns the merge key of l.
func (l Line) Key() Key {
	return Key{ProductID: l.ProductID, Size: l.Size}
}

// Cart is the mutable pre-checkout selection of one user.
type Cart struct {
	UserID string
	Lines  []Line
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Find returns the line stored under k.
func (c *Cart) Find(k Key) (Line, bool) {
	for _, l := range c.Lines {
		if l.Key() == k {
			return l, true
		}
	}
	return Line{}, false
}

// QuantityOf returns the quantity of a product across all sizes.
func (c *Cart) QuantityOf(productID string) int {
	var n int
	for _, l := range c.Lines {
		if l.ProductID == productID {
			n += l.Quantity
		}
	}
	return n
}

// Repository persists carts.
type Repository interface {
	// Get returns the user's cart. A user without lines gets an empty cart.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Put stores the line, replacing any quantity under the same key.
	Put(ctx context.Context, userID string, line Line) error
	// Add increments the quantity under the line's key by line.Quantity,
	// creating the line when absent. The sum is taken by the store, so
	// concurrent adds of one line all count.
	Add(ctx context.Context, userID string, line Line) error
	// Replace drops every line of the user and stores lines instead.
	Replace(ctx context.Context, userID string, lines []Line) error
	// Delete removes the line under k. It returns ErrLineNotFound when absent.
	Delete(ctx context.Context, userID string, k Key) error
}
