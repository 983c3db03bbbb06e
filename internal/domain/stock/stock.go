// Package stock implements the all-or-nothing reservation rules of the
// per-product stock ledger. Storage backends lock the affected rows, hand the
// locked levels to Apply or Restore, and write the result back.
package stock

import (
	"fmt"
	"slices"
)

// Reservation is a request to take (or give back) qty units of a product.
type Reservation struct {
	ProductID string
	Quantity  int
}

// InsufficientStockError reports a product whose available stock cannot
// cover the requested quantity.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// UnknownProductError reports a reservation for a product that has no stock
// row.
type UnknownProductError struct {
	ProductID string
}

func (e *UnknownProductError) Error() string {
	return fmt.Sprintf("no stock record for product %s", e.ProductID)
}

// Merge folds reservations for the same product into one entry and returns
// them sorted by product ID. Lines of one product in different sizes share a
// single stock counter. Sorted order is also the lock order.
func Merge(reqs []Reservation) []Reservation {
	totals := make(map[string]int, len(reqs))
	for _, r := range reqs {
		totals[r.ProductID] += r.Quantity
	}
	out := make([]Reservation, 0, len(totals))
	for id, qty := range totals {
		out = append(out, Reservation{ProductID: id, Quantity: qty})
	}
	slices.SortFunc(out, func(a, b Reservation) int {
		switch {
		case a.ProductID < b.ProductID:
			return -1
		case a.ProductID > b.ProductID:
			return 1
		}
		return 0
	})
	return out
}

// IDs returns the product IDs of the reservations, in order.
func IDs(reqs []Reservation) []string {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ProductID
	}
	return ids
}

// Apply reserves every request against levels as one unit. On success it
// returns the new levels for the touched products. On failure levels is left
// untouched and the first shortfall (in product ID order) is returned.
func Apply(levels map[string]int, reqs []Reservation) (map[string]int, error) {
	merged := Merge(reqs)
	next := make(map[string]int, len(merged))
	for _, r := range merged {
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("reservation for product %s: quantity must be positive", r.ProductID)
		}
		available, ok := levels[r.ProductID]
		if !ok {
			return nil, &UnknownProductError{ProductID: r.ProductID}
		}
		if available < r.Quantity {
			return nil, &InsufficientStockError{
				ProductID: r.ProductID,
				Available: available,
				Requested: r.Quantity,
			}
		}
		next[r.ProductID] = available - r.Quantity
	}
	return next, nil
}

// Restore gives reservations back to levels. It never fails on quantity;
// adding back saturates at the int range instead of wrapping.
func Restore(levels map[string]int, reqs []Reservation) map[string]int {
	const maxLevel = int(^uint(0) >> 1)
	next := make(map[string]int, len(reqs))
	for _, r := range Merge(reqs) {
		cur := levels[r.ProductID]
		if r.Quantity <= 0 {
			next[r.ProductID] = cur
			continue
		}
		if cur > maxLevel-r.Quantity {
			next[r.ProductID] = maxLevel
			continue
		}
		next[r.ProductID] = cur + r.Quantity
	}
	return next
}
