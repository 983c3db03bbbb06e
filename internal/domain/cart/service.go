package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/stock"
)

// AddRequest is a request to put a product into the cart.
type AddRequest struct {
	ProductID string
	Size      Size
	Quantity  int
	// BuyNow replaces the whole cart with this single line.
	BuyNow bool
}

// Service implements the cart operations on top of a Repository.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// View returns the user's cart.
func (s *Service) View(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	return c, nil
}

// Add merges the requested quantity into the line for the same product and
// size. The merged quantity of the product may not exceed its stock.
func (s *Service) Add(ctx context.Context, userID string, req AddRequest) (*Cart, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if !req.Size.Valid() {
		return nil, ErrInvalidSize
	}
	p, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	if req.BuyNow {
		if req.Quantity > p.Stock {
			return nil, shortfall(p, req.Quantity)
		}
		line := Line{ProductID: p.ID, Size: req.Size, Quantity: req.Quantity}
		if err := s.carts.Replace(ctx, userID, []Line{line}); err != nil {
			return nil, errors.Wrap(err, "replace cart")
		}
		return s.View(ctx, userID)
	}

	c, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	if want := c.QuantityOf(p.ID) + req.Quantity; want > p.Stock {
		return nil, shortfall(p, want)
	}
	line := Line{ProductID: p.ID, Size: req.Size, Quantity: req.Quantity}
	if err := s.carts.Add(ctx, userID, line); err != nil {
		return nil, errors.Wrap(err, "add cart line")
	}
	return s.View(ctx, userID)
}

// Update sets the quantity of an existing line.
func (s *Service) Update(ctx context.Context, userID string, k Key, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	c, err := s.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, ok := c.Find(k)
	if !ok {
		return nil, ErrLineNotFound
	}
	p, err := s.products.GetByID(ctx, k.ProductID)
	if err != nil {
		return nil, err
	}
	if want := c.QuantityOf(p.ID) - existing.Quantity + quantity; want > p.Stock {
		return nil, shortfall(p, want)
	}
	if err := s.carts.Put(ctx, userID, Line{ProductID: k.ProductID, Size: k.Size, Quantity: quantity}); err != nil {
		return nil, errors.Wrap(err, "put cart line")
	}
	return s.View(ctx, userID)
}

// Remove deletes a line.
func (s *Service) Remove(ctx context.Context, userID string, k Key) (*Cart, error) {
	if err := s.carts.Delete(ctx, userID, k); err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "delete cart line")
	}
	return s.View(ctx, userID)
}

// Fill re-adds lines one by one, typically from a past order. Each line is
// checked like Add; failures are reported per line and do not stop the rest.
func (s *Service) Fill(ctx context.Context, userID string, lines []Line) (added []Line, failed map[Key]error, err error) {
	failed = make(map[Key]error)
	for _, l := range lines {
		_, addErr := s.Add(ctx, userID, AddRequest{ProductID: l.ProductID, Size: l.Size, Quantity: l.Quantity})
		switch {
		case addErr == nil:
			added = append(added, l)
		case isLineError(addErr):
			failed[l.Key()] = addErr
		default:
			return added, failed, addErr
		}
	}
	return added, failed, nil
}

func isLineError(err error) bool {
	var insufficient *stock.InsufficientStockError
	return errors.As(err, &insufficient) ||
		errors.Is(err, product.ErrNotFound) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidSize)
}

func shortfall(p *product.Product, requested int) error {
	return &stock.InsufficientStockError{
		ProductID: p.ID,
		Available: p.Stock,
		Requested: requested,
	}
}
