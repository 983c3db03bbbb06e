package rating

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/product"
)

type mockReviews struct {
	counters map[string]*Counters
	stored   []Review
}

func (m *mockReviews) Record(_ context.Context, reviews []Review) ([]Summary, error) {
	out := make([]Summary, 0, len(reviews))
	for _, r := range reviews {
		c, ok := m.counters[r.ProductID]
		if !ok {
			c = new(Counters)
			m.counters[r.ProductID] = c
		}
		avg, err := c.Record(r.Rating)
		if err != nil {
			return nil, err
		}
		m.stored = append(m.stored, r)
		out = append(out, Summary{ProductID: r.ProductID, Counters: *c, Average: avg})
	}
	return out, nil
}

func (m *mockReviews) ListByProduct(_ context.Context, productID string) ([]Review, error) {
	var out []Review
	for _, r := range m.stored {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockProducts struct {
	product.Repository
}

func (mockProducts) GetByID(_ context.Context, id string) (*product.Product, error) {
	if id != "p1" {
		return nil, product.ErrNotFound
	}
	return &product.Product{ID: id}, nil
}

func TestService_Comment(t *testing.T) {
	reviews := &mockReviews{counters: make(map[string]*Counters)}
	svc := NewService(reviews, mockProducts{})
	ctx := context.Background()

	for _, stars := range []int{5, 5} {
		_, err := svc.Comment(ctx, "u1", "p1", stars, "great")
		require.NoError(t, err)
	}
	got, err := svc.Comment(ctx, "u2", "p1", 4, "  fine  ")
	require.NoError(t, err)
	assert.Equal(t, "4.667", got.Average.String())
	assert.Equal(t, "fine", reviews.stored[2].Comment)
	assert.Empty(t, reviews.stored[2].OrderNumber)

	listed, err := svc.List(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, listed, 3)
}

func TestService_CommentRejected(t *testing.T) {
	tests := []struct {
		name      string
		productID string
		stars     int
		comment   string
		check     func(t *testing.T, err error)
	}{
		{
			name: "zero stars", productID: "p1", stars: 0, comment: "x",
			check: func(t *testing.T, err error) {
				var invalid *InvalidRatingError
				require.ErrorAs(t, err, &invalid)
			},
		},
		{
			name: "blank comment", productID: "p1", stars: 3, comment: "   ",
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, ErrEmptyComment) },
		},
		{
			name: "unknown product", productID: "p9", stars: 3, comment: "x",
			check: func(t *testing.T, err error) { require.ErrorIs(t, err, product.ErrNotFound) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reviews := &mockReviews{counters: make(map[string]*Counters)}
			_, err := NewService(reviews, mockProducts{}).Comment(context.Background(), "u1", tt.productID, tt.stars, tt.comment)
			tt.check(t, err)
			assert.Empty(t, reviews.stored)
		})
	}
}
