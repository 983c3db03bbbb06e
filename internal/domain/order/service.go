package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/promo"
	"github.com/xenking/storefront/internal/domain/rating"
	"github.com/xenking/storefront/internal/domain/stock"
)

// CheckoutRequest holds the buyer input for committing the cart.
type CheckoutRequest struct {
	Shipping  ShippingInfo
	Payment   PaymentInfo
	PromoCode string
}

// ReviewInput is one product review submitted against a delivered order.
type ReviewInput struct {
	ProductID string
	Rating    int
	Comment   string
}

// RebuyResult reports which past items went back into the cart.
type RebuyResult struct {
	Added  []cart.Line
	Failed map[cart.Key]error
}

// Service encapsulates order checkout and lifecycle business logic.
type Service struct {
	quoter  *pricing.Quoter
	orders  Repository
	ratings rating.Repository
	carts   *cart.Service
	now     func() time.Time

	committed metric.Int64Counter
	rejected  metric.Int64Counter
	cancelled metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithMeter records checkout and cancel counters on m.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) { s.initMetrics(m) }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	quoter *pricing.Quoter,
	orders Repository,
	ratings rating.Repository,
	carts *cart.Service,
	opts ...Option,
) *Service {
	s := &Service{
		quoter:  quoter,
		orders:  orders,
		ratings: ratings,
		carts:   carts,
		now:     time.Now,
	}
	s.initMetrics(noop.NewMeterProvider().Meter(""))
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) initMetrics(m metric.Meter) {
	s.committed, _ = m.Int64Counter("storefront.checkout.committed",
		metric.WithDescription("Orders committed at checkout"))
	s.rejected, _ = m.Int64Counter("storefront.checkout.rejected",
		metric.WithDescription("Checkouts rejected before commit"))
	s.cancelled, _ = m.Int64Counter("storefront.order.cancelled",
		metric.WithDescription("Orders cancelled by their owner"))
}

// Checkout validates the buyer input, prices the live cart and commits it
// as a new pending order.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*Order, error) {
	o, err := s.checkout(ctx, userID, req)
	if err != nil {
		s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", rejectReason(err))))
		return nil, err
	}
	s.committed.Add(ctx, 1)
	return o, nil
}

func (s *Service) checkout(ctx context.Context, userID string, req CheckoutRequest) (*Order, error) {
	if err := validateStruct("shipping", req.Shipping); err != nil {
		return nil, err
	}
	if err := validateStruct("payment", req.Payment); err != nil {
		return nil, err
	}

	q, err := s.quoter.Quote(ctx, userID, req.PromoCode)
	if err != nil {
		return nil, err
	}
	if len(q.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	o := New(q, req.Shipping, req.Payment, s.now())
	if err := s.orders.Commit(ctx, o); err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order committed",
		zap.String("order", o.Number),
		zap.String("user", userID),
		zap.Int("items", len(o.Items)),
		zap.Stringer("total", o.Total),
	)
	return o, nil
}

// Get returns an order owned by userID.
func (s *Service) Get(ctx context.Context, userID, number string) (*Order, error) {
	o, err := s.orders.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

// List returns the user's orders, newest first.
func (s *Service) List(ctx context.Context, userID string, f ListFilter) ([]Order, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(*f.Status)}
	}
	orders, err := s.orders.List(ctx, userID, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Advance moves an order one step along the fulfilment chain. It is an
// operator action and does not check ownership.
func (s *Service) Advance(ctx context.Context, number string, target Status) (*Order, error) {
	if !target.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status " + string(target)}
	}
	o, err := s.orders.Update(ctx, number, func(o *Order) ([]stock.Reservation, error) {
		return nil, o.Advance(target)
	})
	if err != nil {
		s.logIllegal(ctx, err)
		return nil, err
	}
	return o, nil
}

// Cancel cancels a pending or processing order of userID and gives its
// stock back.
func (s *Service) Cancel(ctx context.Context, userID, number string) (*Order, error) {
	o, err := s.orders.Update(ctx, number, func(o *Order) ([]stock.Reservation, error) {
		if o.UserID != userID {
			return nil, ErrNotFound
		}
		return o.Cancel()
	})
	if err != nil {
		s.logIllegal(ctx, err)
		return nil, err
	}
	s.cancelled.Add(ctx, 1)
	return o, nil
}

// Review records ratings for products of a delivered order. Each product
// may appear at most once and must belong to the order.
func (s *Service) Review(ctx context.Context, userID, number string, inputs []ReviewInput) ([]rating.Summary, error) {
	o, err := s.Get(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	if err := o.CanReview(); err != nil {
		s.logIllegal(ctx, err)
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, &ValidationError{Field: "reviews", Reason: "at least one review is required"}
	}

	bought := make(map[string]struct{}, len(o.Items))
	for _, it := range o.Items {
		bought[it.ProductID] = struct{}{}
	}
	seen := make(map[string]struct{}, len(inputs))
	reviews := make([]rating.Review, 0, len(inputs))
	now := s.now()
	for _, in := range inputs {
		if _, ok := bought[in.ProductID]; !ok {
			return nil, &ValidationError{Field: "product_id", Reason: "product " + in.ProductID + " is not in the order"}
		}
		if _, dup := seen[in.ProductID]; dup {
			return nil, &ValidationError{Field: "product_id", Reason: "product " + in.ProductID + " reviewed twice"}
		}
		seen[in.ProductID] = struct{}{}
		if err := rating.Validate(in.Rating); err != nil {
			return nil, err
		}
		reviews = append(reviews, rating.Review{
			OrderNumber: o.Number,
			ProductID:   in.ProductID,
			UserID:      userID,
			Rating:      in.Rating,
			Comment:     in.Comment,
			CreatedAt:   now,
		})
	}

	summaries, err := s.ratings.Record(ctx, reviews)
	if err != nil {
		if errors.Is(err, rating.ErrAlreadyReviewed) {
			return nil, err
		}
		return nil, errors.Wrap(err, "record reviews")
	}
	return summaries, nil
}

// Rebuy puts the items of a delivered order back into the user's cart at
// current prices. Items that can no longer be added are reported, not fatal.
func (s *Service) Rebuy(ctx context.Context, userID, number string) (*RebuyResult, error) {
	o, err := s.Get(ctx, userID, number)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusDelivered {
		err := &IllegalTransitionError{Number: o.Number, From: o.Status, Action: "rebuy"}
		s.logIllegal(ctx, err)
		return nil, err
	}
	lines := make([]cart.Line, len(o.Items))
	for i, it := range o.Items {
		lines[i] = cart.Line{ProductID: it.ProductID, Size: it.Size, Quantity: it.Quantity}
	}
	added, failed, err := s.carts.Fill(ctx, userID, lines)
	if err != nil {
		return nil, errors.Wrap(err, "fill cart")
	}
	return &RebuyResult{Added: added, Failed: failed}, nil
}

func (s *Service) logIllegal(ctx context.Context, err error) {
	var illegal *IllegalTransitionError
	if errors.As(err, &illegal) {
		zctx.From(ctx).Warn("Illegal order transition",
			zap.String("order", illegal.Number),
			zap.String("from", string(illegal.From)),
			zap.String("action", illegal.Action),
		)
	}
}

func rejectReason(err error) string {
	var (
		insufficient *stock.InsufficientStockError
		validation   *ValidationError
	)
	switch {
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.As(err, &validation):
		return "validation"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrCartChanged):
		return "cart_changed"
	case errors.Is(err, promo.ErrNotFound), errors.Is(err, promo.ErrExpired):
		return "promo"
	}
	return "other"
}
