package rating

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrEmptyComment is returned for a product review without text.
var ErrEmptyComment = errors.New("review comment is required")

// Service handles reviews written directly on a product page.
type Service struct {
	reviews  Repository
	products product.Repository
	now      func() time.Time
}

// NewService creates a rating Service.
func NewService(reviews Repository, products product.Repository) *Service {
	return &Service{reviews: reviews, products: products, now: time.Now}
}

// Comment records a free-standing product review and returns the new
// aggregate.
func (s *Service) Comment(ctx context.Context, userID, productID string, stars int, comment string) (*Summary, error) {
	if err := Validate(stars); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, ErrEmptyComment
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	summaries, err := s.reviews.Record(ctx, []Review{{
		ProductID: productID,
		UserID:    userID,
		Rating:    stars,
		Comment:   comment,
		CreatedAt: s.now(),
	}})
	if err != nil {
		return nil, errors.Wrap(err, "record review")
	}
	return &summaries[0], nil
}

// List returns the reviews of a product, newest first.
func (s *Service) List(ctx context.Context, productID string) ([]Review, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.reviews.ListByProduct(ctx, productID)
}
