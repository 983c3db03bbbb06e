package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/promo"
)

const (
	getCouponByCodeSQL = `SELECT code, discount, valid_from, valid_to, active
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	getDiscountCodeByCodeSQL = `SELECT code, discount_percentage, discount_amount, start_date, end_date
		FROM discount_codes WHERE UPPER(code) = UPPER($1)`

	upsertCouponSQL = `INSERT INTO coupons (code, discount, valid_from, valid_to, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET discount = EXCLUDED.discount,
			valid_from = EXCLUDED.valid_from, valid_to = EXCLUDED.valid_to, active = EXCLUDED.active`

	upsertDiscountCodeSQL = `INSERT INTO discount_codes (code, discount_percentage, discount_amount, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET discount_percentage = EXCLUDED.discount_percentage,
			discount_amount = EXCLUDED.discount_amount,
			start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`
)

var _ promo.Registry = (*PromoRegistry)(nil)

// PromoRegistry implements promo.Registry over the coupons and
// discount_codes tables. An active coupon shadows a discount code with the
// same key.
type PromoRegistry struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewPromoRegistry returns a PromoRegistry. Discount-code dates are read as
// calendar days in loc.
func NewPromoRegistry(pool *pgxpool.Pool, loc *time.Location) *PromoRegistry {
	return &PromoRegistry{pool: pool, loc: loc}
}

// FindByCode looks the code up case-insensitively in both registries.
// Returns promo.ErrNotFound when neither knows it.
func (r *PromoRegistry) FindByCode(ctx context.Context, code string) (*promo.Code, error) {
	c, err := r.findCoupon(ctx, code)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, promo.ErrNotFound) {
		return nil, err
	}
	return r.findDiscountCode(ctx, code)
}

func (r *PromoRegistry) findCoupon(ctx context.Context, code string) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	raw, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	c, err := promo.FromCoupon(raw)
	if err != nil {
		return nil, fmt.Errorf("coupon %q: %w", code, err)
	}
	return &c, nil
}

func (r *PromoRegistry) findDiscountCode(ctx context.Context, code string) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, getDiscountCodeByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}
	raw, err := pgx.CollectExactlyOneRow(rows, r.scanDiscountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("finding discount code %q: %w", code, err)
	}
	c, err := promo.FromDiscountCode(raw, r.loc)
	if err != nil {
		return nil, fmt.Errorf("discount code %q: %w", code, err)
	}
	return &c, nil
}

// UpsertCoupon inserts or replaces a coupon record.
func (r *PromoRegistry) UpsertCoupon(ctx context.Context, c promo.Coupon) error {
	_, err := r.pool.Exec(ctx, upsertCouponSQL, c.Code, c.Discount, c.ValidFrom, c.ValidTo, c.Active)
	if err != nil {
		return fmt.Errorf("upserting coupon %q: %w", c.Code, err)
	}
	return nil
}

// UpsertDiscountCode inserts or replaces a discount-code record.
func (r *PromoRegistry) UpsertDiscountCode(ctx context.Context, d promo.DiscountCode) error {
	var amount *int64
	if d.DiscountAmount != nil {
		v := d.DiscountAmount.Int64()
		amount = &v
	}
	_, err := r.pool.Exec(ctx, upsertDiscountCodeSQL,
		d.Code, d.DiscountPercentage, amount, d.StartDate, d.EndDate,
	)
	if err != nil {
		return fmt.Errorf("upserting discount code %q: %w", d.Code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (promo.Coupon, error) {
	var c promo.Coupon
	err := row.Scan(&c.Code, &c.Discount, &c.ValidFrom, &c.ValidTo, &c.Active)
	return c, err
}

func (r *PromoRegistry) scanDiscountCode(row pgx.CollectableRow) (promo.DiscountCode, error) {
	var (
		d          promo.DiscountCode
		percentage decimal.NullDecimal
		amount     *int64
		start, end time.Time
	)
	err := row.Scan(&d.Code, &percentage, &amount, &start, &end)
	d.DiscountPercentage = percentage
	if amount != nil {
		m := money.Money(*amount)
		d.DiscountAmount = &m
	}
	d.StartDate = inLocation(start, r.loc)
	d.EndDate = inLocation(end, r.loc)
	return d, err
}

// inLocation reinterprets a DATE (decoded as UTC midnight) as midnight in loc.
func inLocation(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
