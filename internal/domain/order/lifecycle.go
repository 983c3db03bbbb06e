package order

import "github.com/xenking/storefront/internal/domain/stock"

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// next is the linear happy path. Cancelled is reached only through Cancel.
var next = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether an order in s may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// Advance moves o to target, which must be the immediate successor of the
// current status.
func (o *Order) Advance(target Status) error {
	if succ, ok := next[o.Status]; !ok || succ != target {
		return &IllegalTransitionError{Number: o.Number, From: o.Status, Action: "advance to " + string(target)}
	}
	o.Status = target
	return nil
}

// Cancel moves o to Cancelled, hides it from default listings and returns
// the stock to give back.
func (o *Order) Cancel() ([]stock.Reservation, error) {
	if !o.Status.Cancellable() {
		return nil, &IllegalTransitionError{Number: o.Number, From: o.Status, Action: "cancel"}
	}
	o.Status = StatusCancelled
	o.Deleted = true
	return o.Reservations(), nil
}

// CanReview reports whether reviews may be written against o.
func (o *Order) CanReview() error {
	if o.Status != StatusDelivered {
		return &IllegalTransitionError{Number: o.Number, From: o.Status, Action: "review"}
	}
	return nil
}
