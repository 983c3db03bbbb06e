package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/rating"
)

const (
	ensureRatingRowsSQL = `INSERT INTO product_ratings (product_id)
		SELECT unnest($1::text[]) ON CONFLICT (product_id) DO NOTHING`

	lockRatingsSQL = `SELECT product_id, star1, star2, star3, star4, star5
		FROM product_ratings WHERE product_id = ANY($1) ORDER BY product_id FOR UPDATE`

	updateRatingSQL = `UPDATE product_ratings SET star1 = $2, star2 = $3, star3 = $4, star4 = $5,
		star5 = $6, average = $7 WHERE product_id = $1`

	insertReviewSQL = `INSERT INTO reviews (product_id, user_id, order_number, rating, comment, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`

	listReviewsSQL = `SELECT COALESCE(order_number, ''), product_id, user_id, rating, comment, created_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at DESC, id DESC`
)

const uniqueViolation = "23505"

var _ rating.Repository = (*RatingRepository)(nil)

// RatingRepository stores reviews and the per-product star counters.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// NewRatingRepository returns a RatingRepository that uses the given pool.
func NewRatingRepository(pool *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// Record inserts the reviews and bumps the locked counters of every
// reviewed product in one transaction.
func (r *RatingRepository) Record(ctx context.Context, reviews []rating.Review) ([]rating.Summary, error) {
	ids := make([]string, 0, len(reviews))
	for _, rv := range reviews {
		if !slices.Contains(ids, rv.ProductID) {
			ids = append(ids, rv.ProductID)
		}
	}
	slices.Sort(ids)

	var summaries []rating.Summary
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, ensureRatingRowsSQL, ids); err != nil {
			return fmt.Errorf("ensuring rating rows: %w", err)
		}
		counters, err := lockRatings(ctx, tx, ids)
		if err != nil {
			return err
		}

		summaries = make([]rating.Summary, 0, len(reviews))
		for _, rv := range reviews {
			c := counters[rv.ProductID]
			avg, err := c.Record(rv.Rating)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, insertReviewSQL,
				rv.ProductID, rv.UserID, rv.OrderNumber, rv.Rating, rv.Comment, rv.CreatedAt,
			); err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
					return rating.ErrAlreadyReviewed
				}
				return fmt.Errorf("inserting review of %q: %w", rv.ProductID, err)
			}
			if _, err := tx.Exec(ctx, updateRatingSQL,
				rv.ProductID, c[0], c[1], c[2], c[3], c[4], avg,
			); err != nil {
				return fmt.Errorf("updating rating of %q: %w", rv.ProductID, err)
			}
			summaries = append(summaries, rating.Summary{ProductID: rv.ProductID, Counters: *c, Average: avg})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ListByProduct returns the reviews of a product, newest first.
func (r *RatingRepository) ListByProduct(ctx context.Context, productID string) ([]rating.Review, error) {
	rows, err := r.pool.Query(ctx, listReviewsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("listing reviews of %q: %w", productID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (rating.Review, error) {
		var rv rating.Review
		err := row.Scan(&rv.OrderNumber, &rv.ProductID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.CreatedAt)
		return rv, err
	})
}

func lockRatings(ctx context.Context, tx pgx.Tx, ids []string) (map[string]*rating.Counters, error) {
	rows, err := tx.Query(ctx, lockRatingsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking ratings: %w", err)
	}
	out := make(map[string]*rating.Counters, len(ids))
	var (
		id string
		c  rating.Counters
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &c[0], &c[1], &c[2], &c[3], &c[4]}, func() error {
		cp := c
		out[id] = &cp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("locking ratings: %w", err)
	}
	return out, nil
}
