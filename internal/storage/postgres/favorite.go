package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/favorite"
	"github.com/xenking/storefront/internal/domain/product"
)

const (
	addFavoriteSQL = `INSERT INTO favorites (user_id, product_id) VALUES ($1, $2)
		ON CONFLICT (user_id, product_id) DO NOTHING`

	removeFavoriteSQL = `DELETE FROM favorites WHERE user_id = $1 AND product_id = $2`

	listFavoritesSQL = `SELECT user_id, product_id, created_at FROM favorites
		WHERE user_id = $1 ORDER BY created_at DESC, product_id`
)

const foreignKeyViolation = "23503"

var _ favorite.Repository = (*FavoriteRepository)(nil)

// FavoriteRepository implements favorite.Repository backed by PostgreSQL.
type FavoriteRepository struct {
	pool *pgxpool.Pool
}

// NewFavoriteRepository returns a FavoriteRepository that uses the given pool.
func NewFavoriteRepository(pool *pgxpool.Pool) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

func (r *FavoriteRepository) Add(ctx context.Context, userID, productID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, addFavoriteSQL, userID, productID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return false, product.ErrNotFound
		}
		return false, fmt.Errorf("adding favorite %q: %w", productID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, productID string) error {
	if _, err := r.pool.Exec(ctx, removeFavoriteSQL, userID, productID); err != nil {
		return fmt.Errorf("removing favorite %q: %w", productID, err)
	}
	return nil
}

func (r *FavoriteRepository) List(ctx context.Context, userID string) ([]favorite.Favorite, error) {
	rows, err := r.pool.Query(ctx, listFavoritesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing favorites of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[favorite.Favorite])
}
