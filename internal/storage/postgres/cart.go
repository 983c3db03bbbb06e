package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	listCartLinesSQL = `SELECT product_id, size, quantity FROM cart_lines
		WHERE user_id = $1 ORDER BY added_at, product_id, size`

	putCartLineSQL = `INSERT INTO cart_lines (user_id, product_id, size, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id, size) DO UPDATE SET quantity = EXCLUDED.quantity`

	addCartLineSQL = `INSERT INTO cart_lines (user_id, product_id, size, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id, size) DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity`

	clearCartSQL = `DELETE FROM cart_lines WHERE user_id = $1`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE user_id = $1 AND product_id = $2 AND size = $3`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get returns the user's cart lines in the order they were added.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart of %q: %w", userID, err)
	}
	lines, err := pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("listing cart of %q: %w", userID, err)
	}
	return &cart.Cart{UserID: userID, Lines: lines}, nil
}

// Put upserts a line.
func (r *CartRepository) Put(ctx context.Context, userID string, line cart.Line) error {
	_, err := r.pool.Exec(ctx, putCartLineSQL, userID, line.ProductID, string(line.Size), line.Quantity)
	if err != nil {
		return fmt.Errorf("putting cart line %s/%s: %w", line.ProductID, line.Size, err)
	}
	return nil
}

// Add increments a line in a single upsert.
func (r *CartRepository) Add(ctx context.Context, userID string, line cart.Line) error {
	_, err := r.pool.Exec(ctx, addCartLineSQL, userID, line.ProductID, string(line.Size), line.Quantity)
	if err != nil {
		return fmt.Errorf("adding cart line %s/%s: %w", line.ProductID, line.Size, err)
	}
	return nil
}

// Replace swaps the whole cart in one transaction.
func (r *CartRepository) Replace(ctx context.Context, userID string, lines []cart.Line) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, clearCartSQL, userID); err != nil {
			return fmt.Errorf("clearing cart of %q: %w", userID, err)
		}
		for _, l := range lines {
			if _, err := tx.Exec(ctx, putCartLineSQL, userID, l.ProductID, string(l.Size), l.Quantity); err != nil {
				return fmt.Errorf("putting cart line %s/%s: %w", l.ProductID, l.Size, err)
			}
		}
		return nil
	})
}

// Delete removes one line. Returns cart.ErrLineNotFound when absent.
func (r *CartRepository) Delete(ctx context.Context, userID string, k cart.Key) error {
	tag, err := r.pool.Exec(ctx, deleteCartLineSQL, userID, k.ProductID, string(k.Size))
	if err != nil {
		return fmt.Errorf("deleting cart line %s/%s: %w", k.ProductID, k.Size, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l    cart.Line
		size string
	)
	err := row.Scan(&l.ProductID, &size, &l.Quantity)
	l.Size = cart.Size(size)
	return l, err
}
