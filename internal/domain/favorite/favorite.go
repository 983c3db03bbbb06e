// Package favorite keeps the products a user has starred.
package favorite

import (
	"context"
	"time"
)

// Favorite links a user to a product.
type Favorite struct {
	UserID    string
	ProductID string
	CreatedAt time.Time
}

// Repository stores favorites.
type Repository interface {
	// Add stars a product. It reports whether the favorite was newly created
	// and returns product.ErrNotFound for an unknown product.
	Add(ctx context.Context, userID, productID string) (bool, error)
	// Remove unstars a product. Removing an absent favorite is not an error.
	Remove(ctx context.Context, userID, productID string) error
	// List returns favorites newest first.
	List(ctx context.Context, userID string) ([]Favorite, error)
}
