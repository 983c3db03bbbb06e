package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/money"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/stock"
)

// PaymentMethod is how the buyer pays for an order.
type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "cod"
	PaymentBank PaymentMethod = "bank"
)

// ShippingInfo is the delivery address captured at checkout.
type ShippingInfo struct {
	FullName string `validate:"notblank,max=100"`
	Email    string `validate:"required,email"`
	Phone    string `validate:"notblank,max=20"`
	Street   string `validate:"notblank,max=255"`
	Ward     string `validate:"notblank,max=100"`
	District string `validate:"notblank,max=100"`
	Province string `validate:"notblank,max=100"`
	Note     string `validate:"max=500"`
}

// FullAddress joins the non-blank address parts from the most to the least
// specific.
func (s ShippingInfo) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{s.Street, s.Ward, s.District, s.Province} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// PaymentInfo is the payment choice captured at checkout. Bank transfers
// need the bank name and its BIN.
type PaymentInfo struct {
	Method   PaymentMethod `validate:"required,oneof=cod bank"`
	BankName string        `validate:"required_if=Method bank,max=100"`
	BankBIN  string        `validate:"required_if=Method bank,max=20"`
}

// Order is a committed purchase. Only Status and Deleted change after
// creation.
type Order struct {
	Number      string
	UserID      string
	Shipping    ShippingInfo
	Payment     PaymentInfo
	Status      Status
	Subtotal    money.Money
	ShippingFee money.Money
	Discount    money.Money
	Total       money.Money
	PromoCode   string
	CreatedAt   time.Time
	// Deleted hides the order from default listings. It is set by Cancel.
	Deleted bool
	Items   []Item
}

// Item is an order line with the unit price frozen at purchase time.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice money.Money
	Size      cart.Size
	Color     string
}

// Amount returns Quantity * UnitPrice.
func (i Item) Amount() money.Money {
	return i.UnitPrice.Times(i.Quantity)
}

// Pricing returns the stored totals of o.
func (o *Order) Pricing() pricing.Pricing {
	return pricing.Pricing{
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		Discount:    o.Discount,
		Total:       o.Total,
	}
}

// Reservations returns the stock taken by o, one entry per item.
func (o *Order) Reservations() []stock.Reservation {
	out := make([]stock.Reservation, len(o.Items))
	for i, it := range o.Items {
		out[i] = stock.Reservation{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

// ListFilter narrows an order listing. Without a Status, cancelled and
// deleted orders are hidden; naming a Status shows exactly that status.
type ListFilter struct {
	Status *Status
	// Search matches the order number or a product name.
	Search string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Commit stores o and its items, reserves stock for every item and
	// removes the matching cart lines, all in one transaction. It returns
	// *stock.InsufficientStockError when any product is short and
	// ErrCartChanged when the cart no longer matches the items.
	Commit(ctx context.Context, o *Order) error
	// Get returns the order by number. It returns ErrNotFound when absent.
	Get(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, userID string, f ListFilter) ([]Order, error)
	// Update loads the order under lock, applies fn and stores the result.
	// Reservations returned by fn are released back to stock in the same
	// transaction.
	Update(ctx context.Context, number string, fn func(o *Order) ([]stock.Reservation, error)) (*Order, error)
}

// NewNumber generates an order number like ORD20250615A1B2C3D4.
func NewNumber(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return "ORD" + now.Format("20060102") + suffix
}

// New builds a pending order from a priced quote.
func New(q *pricing.Quote, shipping ShippingInfo, payment PaymentInfo, now time.Time) *Order {
	o := &Order{
		Number:      NewNumber(now),
		UserID:      q.UserID,
		Shipping:    shipping,
		Payment:     payment,
		Status:      StatusPending,
		Subtotal:    q.Pricing.Subtotal,
		ShippingFee: q.Pricing.ShippingFee,
		Discount:    q.Pricing.Discount,
		Total:       q.Pricing.Total,
		CreatedAt:   now,
		Items:       make([]Item, len(q.Lines)),
	}
	if q.Promo != nil {
		o.PromoCode = q.Promo.Code
	}
	for i, l := range q.Lines {
		o.Items[i] = Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Size:      l.Size,
		}
	}
	return o
}
