// Package rating keeps per-product star counters and derives the average
// rating from them in constant time.
package rating

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Scale bounds for a single review.
const (
	MinStars = 1
	MaxStars = 5
)

// AverageScale is the number of decimal places kept in an average.
const AverageScale = 3

var (
	// ErrAlreadyReviewed is returned when the product was already reviewed
	// from the same order.
	ErrAlreadyReviewed = errors.New("product already reviewed for this order")
)

// InvalidRatingError reports a star value outside [MinStars, MaxStars].
type InvalidRatingError struct {
	Rating int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("rating %d out of range [%d,%d]", e.Rating, MinStars, MaxStars)
}

// Validate checks a star value.
func Validate(stars int) error {
	if stars < MinStars || stars > MaxStars {
		return &InvalidRatingError{Rating: stars}
	}
	return nil
}

// Counters holds the number of reviews per star value; index 0 is 1 star.
type Counters [MaxStars]int64

// Record counts one review and returns the new average.
func (c *Counters) Record(stars int) (decimal.Decimal, error) {
	if err := Validate(stars); err != nil {
		return decimal.Zero, err
	}
	c[stars-1]++
	return c.Average(), nil
}

// Count returns the total number of reviews.
func (c *Counters) Count() int64 {
	var n int64
	for _, v := range c {
		n += v
	}
	return n
}

// Average returns the mean star value rounded to AverageScale places, or
// zero when there are no reviews.
func (c *Counters) Average() decimal.Decimal {
	n := c.Count()
	if n == 0 {
		return decimal.Zero
	}
	var sum int64
	for i, v := range c {
		sum += int64(i+1) * v
	}
	return decimal.NewFromInt(sum).DivRound(decimal.NewFromInt(n), AverageScale)
}

// Review is one buyer's rating of a product from a delivered order.
type Review struct {
	OrderNumber string
	ProductID   string
	UserID      string
	Rating      int
	Comment     string
	CreatedAt   time.Time
}

// Summary is the aggregate rating of a product.
type Summary struct {
	ProductID string
	Counters  Counters
	Average   decimal.Decimal
}

// Repository stores reviews and keeps the counters in step with them.
type Repository interface {
	// Record stores every review and bumps the counters of each product in
	// one transaction. It returns ErrAlreadyReviewed if any product was
	// already reviewed from the same order.
	Record(ctx context.Context, reviews []Review) ([]Summary, error)
	ListByProduct(ctx context.Context, productID string) ([]Review, error)
}
