package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID           string
	Slug         string
	Name         string
	Category     string
	Price        money.Money
	SalePrice    *money.Money
	Stock        int
	SoldQuantity int
	Rating       decimal.Decimal
	ReviewCount  int
	Image        string
}

// UnitPrice returns the price a buyer pays right now: the sale price when
// present, the list price otherwise.
func (p Product) UnitPrice() money.Money {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.Price
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Index maps products by ID.
func Index(products []Product) map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return m
}
