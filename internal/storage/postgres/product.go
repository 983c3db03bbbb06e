package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/product"
)

const productColumns = `p.id, p.slug, p.name, p.category, p.price, p.sale_price, p.stock,
		p.sold_quantity, COALESCE(r.average, 0),
		COALESCE(r.star1 + r.star2 + r.star3 + r.star4 + r.star5, 0), p.image
		FROM products p LEFT JOIN product_ratings r ON r.product_id = p.id`

const (
	listProductsSQL = `SELECT ` + productColumns + ` ORDER BY p.id`

	getProductByIDSQL = `SELECT ` + productColumns + ` WHERE p.id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` WHERE p.id = ANY($1) ORDER BY p.id`

	upsertProductSQL = `INSERT INTO products (id, slug, name, category, price, sale_price, stock, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET slug = EXCLUDED.slug, name = EXCLUDED.name,
			category = EXCLUDED.category, price = EXCLUDED.price, sale_price = EXCLUDED.sale_price,
			stock = EXCLUDED.stock, image = EXCLUDED.image`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert writes catalog entries in one batch. Sold quantity and ratings are
// left as they are.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		var salePrice *int64
		if p.SalePrice != nil {
			v := p.SalePrice.Int64()
			salePrice = &v
		}
		batch.Queue(upsertProductSQL,
			p.ID, p.Slug, p.Name, p.Category, p.Price.Int64(), salePrice, p.Stock, p.Image,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting products: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p         product.Product
		price     int64
		salePrice *int64
		reviews   int64
	)
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Category, &price, &salePrice, &p.Stock,
		&p.SoldQuantity, &p.Rating, &reviews, &p.Image,
	)
	p.Price = money.Money(price)
	if salePrice != nil {
		sp := money.Money(*salePrice)
		p.SalePrice = &sp
	}
	p.ReviewCount = int(reviews)
	return p, err
}
