package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/favorite"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/rating"
)

const maxBodySize = 1 << 20

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// decodeObject reads a JSON object body and hands each field to fn.
// Unknown fields must be skipped by fn.
func decodeObject(r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return badRequest("read body: " + err.Error())
	}
	if len(body) > maxBodySize {
		return badRequest("request body too large")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return badRequest("request body is required")
	}
	if err := jx.DecodeBytes(body).Obj(fn); err != nil {
		var bad *badRequestError
		if errors.As(err, &bad) {
			return bad
		}
		return badRequest("invalid JSON: " + err.Error())
	}
	return nil
}

// decodeString assigns a string field, accepting null as "".
func decodeString(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	v, err := d.Str()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func decodeInt(d *jx.Decoder, dst *int) error {
	v, err := d.Int()
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func pathInt64(v, name string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, badRequest("invalid " + name)
	}
	return n, nil
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339))
}

func (h *Handler) imageURL(path string) string {
	if path == "" || h.cfg.ImageBaseURL == "" || strings.Contains(path, "://") {
		return path
	}
	return strings.TrimRight(h.cfg.ImageBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("slug")
	e.Str(p.Slug)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("category")
	e.Str(p.Category)
	e.FieldStart("price")
	e.Int64(p.Price.Int64())
	e.FieldStart("sale_price")
	if p.SalePrice != nil {
		e.Int64(p.SalePrice.Int64())
	} else {
		e.Null()
	}
	e.FieldStart("unit_price")
	e.Int64(p.UnitPrice().Int64())
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("sold_quantity")
	e.Int(p.SoldQuantity)
	e.FieldStart("rating")
	e.Str(p.Rating.StringFixed(rating.AverageScale))
	e.FieldStart("review_count")
	e.Int(p.ReviewCount)
	e.FieldStart("image")
	e.Str(h.imageURL(p.Image))
	e.ObjEnd()
}

func encodePricing(e *jx.Encoder, p pricing.Pricing) {
	e.FieldStart("subtotal")
	e.Int64(p.Subtotal.Int64())
	e.FieldStart("shipping_fee")
	e.Int64(p.ShippingFee.Int64())
	e.FieldStart("discount")
	e.Int64(p.Discount.Int64())
	e.FieldStart("total")
	e.Int64(p.Total.Int64())
}

func encodeQuote(e *jx.Encoder, q *pricing.Quote) {
	e.ObjStart()
	e.FieldStart("items")
	e.ArrStart()
	for _, l := range q.Lines {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(l.ProductID)
		e.FieldStart("size")
		e.Str(string(l.Size))
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unit_price")
		e.Int64(l.UnitPrice.Int64())
		e.FieldStart("amount")
		e.Int64(l.Amount().Int64())
		e.ObjEnd()
	}
	e.ArrEnd()
	encodePricing(e, q.Pricing)
	if q.Promo != nil {
		e.FieldStart("promo_code")
		e.Str(q.Promo.Code)
		e.FieldStart("promo_kind")
		e.Str(string(q.Promo.Kind))
	}
	e.ObjEnd()
}

func encodeCartLine(e *jx.Encoder, l cart.Line) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Str(l.ProductID)
	e.FieldStart("size")
	e.Str(string(l.Size))
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	e.ObjEnd()
}

func encodeOrderSummary(e *jx.Encoder, o *order.Order) {
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("status")
	e.Str(string(o.Status))
	encodePricing(e, o.Pricing())
	e.FieldStart("promo_code")
	e.Str(o.PromoCode)
	e.FieldStart("created_at")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("item_count")
	e.Int(len(o.Items))
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	encodeOrderSummary(e, o)

	e.FieldStart("shipping")
	e.ObjStart()
	s := o.Shipping
	for _, f := range []struct{ k, v string }{
		{"full_name", s.FullName},
		{"email", s.Email},
		{"phone", s.Phone},
		{"street", s.Street},
		{"ward", s.Ward},
		{"district", s.District},
		{"province", s.Province},
		{"note", s.Note},
		{"full_address", s.FullAddress()},
	} {
		e.FieldStart(f.k)
		e.Str(f.v)
	}
	e.ObjEnd()

	e.FieldStart("payment")
	e.ObjStart()
	e.FieldStart("method")
	e.Str(string(o.Payment.Method))
	if o.Payment.Method == order.PaymentBank {
		e.FieldStart("bank_name")
		e.Str(o.Payment.BankName)
		e.FieldStart("bank_bin")
		e.Str(o.Payment.BankBIN)
	}
	e.ObjEnd()

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("size")
		e.Str(string(it.Size))
		e.FieldStart("color")
		e.Str(it.Color)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unit_price")
		e.Int64(it.UnitPrice.Int64())
		e.FieldStart("amount")
		e.Int64(it.Amount().Int64())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s rating.Summary) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Str(s.ProductID)
	e.FieldStart("average")
	e.Str(s.Average.StringFixed(rating.AverageScale))
	e.FieldStart("count")
	e.Int64(s.Counters.Count())
	e.FieldStart("stars")
	e.ArrStart()
	for _, n := range s.Counters {
		e.Int64(n)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeReview(e *jx.Encoder, r rating.Review) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Str(r.ProductID)
	e.FieldStart("user_id")
	e.Str(r.UserID)
	if r.OrderNumber != "" {
		e.FieldStart("order_number")
		e.Str(r.OrderNumber)
	}
	e.FieldStart("rating")
	e.Int(r.Rating)
	e.FieldStart("comment")
	e.Str(r.Comment)
	e.FieldStart("created_at")
	encodeTime(e, r.CreatedAt)
	e.ObjEnd()
}

func encodeFavorite(e *jx.Encoder, f favorite.Favorite) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Str(f.ProductID)
	e.FieldStart("created_at")
	encodeTime(e, f.CreatedAt)
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a *address.Address) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(a.ID)
	for _, f := range []struct{ k, v string }{
		{"full_name", a.FullName},
		{"phone", a.Phone},
		{"street", a.Street},
		{"ward", a.Ward},
		{"district", a.District},
		{"province", a.Province},
		{"full_address", a.Format()},
	} {
		e.FieldStart(f.k)
		e.Str(f.v)
	}
	e.FieldStart("default")
	e.Bool(a.Default)
	e.ObjEnd()
}
