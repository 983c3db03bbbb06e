package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/stock"
)

const (
	lockStockSQL = `SELECT id, stock FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	reserveStockSQL = `UPDATE products SET stock = $2, sold_quantity = sold_quantity + $3 WHERE id = $1`

	releaseStockSQL = `UPDATE products SET stock = $2 WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (number, user_id, full_name, email, phone, street, ward,
		district, province, note, payment_method, bank_name, bank_bin, status, subtotal,
		shipping_fee, discount, total, promo_code, created_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	clearCommittedLinesSQL = `DELETE FROM cart_lines c
		USING unnest($2::text[], $3::text[], $4::int[]) AS l(product_id, size, quantity)
		WHERE c.user_id = $1 AND c.product_id = l.product_id AND c.size = l.size AND c.quantity = l.quantity`

	orderColumns = `number, user_id, full_name, email, phone, street, ward, district, province,
		note, payment_method, bank_name, bank_bin, status, subtotal, shipping_fee, discount,
		total, promo_code, created_at, is_deleted`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`

	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listOrderItemsSQL = `SELECT order_number, product_id, quantity, unit_price, size, color
		FROM order_items WHERE order_number = ANY($1) ORDER BY order_number, product_id, size`

	updateOrderStateSQL = `UPDATE orders SET status = $2, is_deleted = $3 WHERE number = $1`
)

var orderItemColumns = []string{"order_number", "product_id", "size", "quantity", "unit_price", "color"}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Stock
// rows are locked in product ID order so concurrent commits never deadlock.
type OrderRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool, tp trace.TracerProvider) *OrderRepository {
	return &OrderRepository{
		pool:   pool,
		tracer: tp.Tracer("storefront/storage/postgres"),
	}
}

// Commit persists a new order, reserves its stock and removes the matching
// cart lines as one transaction.
func (r *OrderRepository) Commit(ctx context.Context, o *order.Order) (rerr error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Commit",
		trace.WithAttributes(
			attribute.String("order.number", o.Number),
			attribute.Int("order.items", len(o.Items)),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		reqs := stock.Merge(o.Reservations())
		levels, err := lockStock(ctx, tx, stock.IDs(reqs))
		if err != nil {
			return err
		}
		after, err := stock.Apply(levels, reqs)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for _, req := range reqs {
			batch.Queue(reserveStockSQL, req.ProductID, after[req.ProductID], req.Quantity)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("reserving stock: %w", err)
		}

		if _, err := tx.Exec(ctx, insertOrderSQL,
			o.Number, o.UserID, o.Shipping.FullName, o.Shipping.Email, o.Shipping.Phone,
			o.Shipping.Street, o.Shipping.Ward, o.Shipping.District, o.Shipping.Province,
			o.Shipping.Note, string(o.Payment.Method), o.Payment.BankName, o.Payment.BankBIN,
			string(o.Status), o.Subtotal.Int64(), o.ShippingFee.Int64(), o.Discount.Int64(),
			o.Total.Int64(), o.PromoCode, o.CreatedAt, o.Deleted,
		); err != nil {
			return fmt.Errorf("creating order %q: %w", o.Number, err)
		}

		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemColumns,
			pgx.CopyFromSlice(len(o.Items), func(i int) ([]any, error) {
				it := o.Items[i]
				return []any{o.Number, it.ProductID, string(it.Size), it.Quantity, it.UnitPrice.Int64(), it.Color}, nil
			}),
		); err != nil {
			return fmt.Errorf("creating items of order %q: %w", o.Number, err)
		}

		products := make([]string, len(o.Items))
		sizes := make([]string, len(o.Items))
		quantities := make([]int32, len(o.Items))
		for i, it := range o.Items {
			products[i], sizes[i], quantities[i] = it.ProductID, string(it.Size), int32(it.Quantity)
		}
		tag, err := tx.Exec(ctx, clearCommittedLinesSQL, o.UserID, products, sizes, quantities)
		if err != nil {
			return fmt.Errorf("clearing cart of %q: %w", o.UserID, err)
		}
		if tag.RowsAffected() != int64(len(o.Items)) {
			return order.ErrCartChanged
		}
		return nil
	})
}

// Get returns the order with its items.
func (r *OrderRepository) Get(ctx context.Context, number string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, number)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	orders := []order.Order{o}
	if err := loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns the user's orders newest first. Without a status filter
// cancelled and deleted orders are skipped.
func (r *OrderRepository) List(ctx context.Context, userID string, f order.ListFilter) ([]order.Order, error) {
	var (
		sb   strings.Builder
		args = []any{userID}
	)
	sb.WriteString(`SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = $1`)
	if f.Status != nil {
		args = append(args, string(*f.Status))
		fmt.Fprintf(&sb, ` AND o.status = $%d`, len(args))
	} else {
		sb.WriteString(` AND NOT o.is_deleted AND o.status <> 'cancelled'`)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		fmt.Fprintf(&sb, ` AND (o.number ILIKE $%[1]d OR EXISTS (
			SELECT 1 FROM order_items i JOIN products p ON p.id = i.product_id
			WHERE i.order_number = o.number AND p.name ILIKE $%[1]d))`, len(args))
	}
	sb.WriteString(` ORDER BY o.created_at DESC, o.number`)

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders of %q: %w", userID, err)
	}
	if err := loadItems(ctx, r.pool, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Update locks the order, applies fn and releases any stock fn hands back,
// all in one transaction.
func (r *OrderRepository) Update(
	ctx context.Context,
	number string,
	fn func(o *order.Order) ([]stock.Reservation, error),
) (_ *order.Order, rerr error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Update",
		trace.WithAttributes(attribute.String("order.number", number)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	var updated *order.Order
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockOrderSQL, number)
		if err != nil {
			return fmt.Errorf("locking order %q: %w", number, err)
		}
		o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrNotFound
			}
			return fmt.Errorf("locking order %q: %w", number, err)
		}
		orders := []order.Order{o}
		if err := loadItems(ctx, tx, orders); err != nil {
			return err
		}
		o = orders[0]

		released, err := fn(&o)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, updateOrderStateSQL, o.Number, string(o.Status), o.Deleted); err != nil {
			return fmt.Errorf("updating order %q: %w", o.Number, err)
		}
		if len(released) > 0 {
			if err := releaseStock(ctx, tx, released); err != nil {
				return err
			}
		}
		span.SetAttributes(attribute.String("order.status", string(o.Status)))
		updated = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func lockStock(ctx context.Context, tx pgx.Tx, ids []string) (map[string]int, error) {
	rows, err := tx.Query(ctx, lockStockSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("locking stock: %w", err)
	}
	levels := make(map[string]int, len(ids))
	var (
		id    string
		level int
	)
	_, err = pgx.ForEachRow(rows, []any{&id, &level}, func() error {
		levels[id] = level
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("locking stock: %w", err)
	}
	return levels, nil
}

func releaseStock(ctx context.Context, tx pgx.Tx, released []stock.Reservation) error {
	reqs := stock.Merge(released)
	levels, err := lockStock(ctx, tx, stock.IDs(reqs))
	if err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for id, level := range stock.Restore(levels, reqs) {
		if _, ok := levels[id]; !ok {
			// Product removed from the catalog since purchase.
			continue
		}
		batch.Queue(releaseStockSQL, id, level)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("releasing stock: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	idx := make(map[string]int, len(orders))
	numbers := make([]string, len(orders))
	for i, o := range orders {
		idx[o.Number] = i
		numbers[i] = o.Number
	}
	rows, err := q.Query(ctx, listOrderItemsSQL, numbers)
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	var (
		number    string
		it        order.Item
		unitPrice int64
		size      string
	)
	_, err = pgx.ForEachRow(rows, []any{&number, &it.ProductID, &it.Quantity, &unitPrice, &size, &it.Color}, func() error {
		it.UnitPrice = money.Money(unitPrice)
		it.Size = cart.Size(size)
		i := idx[number]
		orders[i].Items = append(orders[i].Items, it)
		return nil
	})
	if err != nil {
		return fmt.Errorf("listing order items: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                      order.Order
		method, status                         string
		subtotal, shippingFee, discount, total int64
	)
	err := row.Scan(
		&o.Number, &o.UserID, &o.Shipping.FullName, &o.Shipping.Email, &o.Shipping.Phone,
		&o.Shipping.Street, &o.Shipping.Ward, &o.Shipping.District, &o.Shipping.Province,
		&o.Shipping.Note, &method, &o.Payment.BankName, &o.Payment.BankBIN, &status,
		&subtotal, &shippingFee, &discount, &total, &o.PromoCode, &o.CreatedAt, &o.Deleted,
	)
	o.Payment.Method = order.PaymentMethod(method)
	o.Status = order.Status(status)
	o.Subtotal = money.Money(subtotal)
	o.ShippingFee = money.Money(shippingFee)
	o.Discount = money.Money(discount)
	o.Total = money.Money(total)
	return o, err
}
