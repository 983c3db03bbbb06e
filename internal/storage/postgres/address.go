package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/address"
)

const (
	addressColumns = `id, user_id, full_name, phone, street, ward, district, province, is_default`

	createAddressSQL = `INSERT INTO addresses (user_id, full_name, phone, street, ward, district, province, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`

	updateAddressSQL = `UPDATE addresses SET full_name = $3, phone = $4, street = $5, ward = $6,
		district = $7, province = $8, is_default = $9 WHERE id = $1 AND user_id = $2`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND id <> $2`

	deleteAddressSQL = `DELETE FROM addresses WHERE id = $1 AND user_id = $2`

	getAddressSQL = `SELECT ` + addressColumns + ` FROM addresses WHERE id = $1 AND user_id = $2`

	listAddressesSQL = `SELECT ` + addressColumns + ` FROM addresses
		WHERE user_id = $1 ORDER BY is_default DESC, id`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
// At most one address per user is flagged as default.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, createAddressSQL,
			a.UserID, a.FullName, a.Phone, a.Street, a.Ward, a.District, a.Province, a.Default,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("creating address: %w", err)
		}
		return clearOtherDefaults(ctx, tx, a)
	})
}

func (r *AddressRepository) Update(ctx context.Context, a *address.Address) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, updateAddressSQL,
			a.ID, a.UserID, a.FullName, a.Phone, a.Street, a.Ward, a.District, a.Province, a.Default,
		)
		if err != nil {
			return fmt.Errorf("updating address %d: %w", a.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return address.ErrNotFound
		}
		return clearOtherDefaults(ctx, tx, a)
	})
}

func clearOtherDefaults(ctx context.Context, tx pgx.Tx, a *address.Address) error {
	if !a.Default {
		return nil
	}
	if _, err := tx.Exec(ctx, clearDefaultAddressSQL, a.UserID, a.ID); err != nil {
		return fmt.Errorf("clearing default address: %w", err)
	}
	return nil
}

func (r *AddressRepository) Delete(ctx context.Context, userID string, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteAddressSQL, id, userID)
	if err != nil {
		return fmt.Errorf("deleting address %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return address.ErrNotFound
	}
	return nil
}

func (r *AddressRepository) Get(ctx context.Context, userID string, id int64) (*address.Address, error) {
	rows, err := r.pool.Query(ctx, getAddressSQL, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[address.Address])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address %d: %w", id, err)
	}
	return &a, nil
}

func (r *AddressRepository) List(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses of %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[address.Address])
}
