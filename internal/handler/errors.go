package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/promo"
	"github.com/xenking/storefront/internal/domain/rating"
	"github.com/xenking/storefront/internal/domain/stock"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// badRequestError is a malformed request: bad JSON, a bad path parameter.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestError{msg: msg} }

// statusOf maps a domain error to its HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	var (
		bad          *badRequestError
		validation   *order.ValidationError
		invalidAddr  *address.InvalidError
		invalidStars *rating.InvalidRatingError
		illegal      *order.IllegalTransitionError
		insufficient *stock.InsufficientStockError
	)
	switch {
	case errors.As(err, &bad), errors.Is(err, order.ErrEmptyCart):
		return http.StatusBadRequest
	case errors.As(err, &validation),
		errors.As(err, &invalidAddr),
		errors.As(err, &invalidStars),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidSize),
		errors.Is(err, rating.ErrEmptyComment),
		errors.Is(err, promo.ErrNotFound),
		errors.Is(err, promo.ErrExpired),
		errors.Is(err, promo.ErrInvalidValue),
		errors.Is(err, promo.ErrInvalidWindow),
		errors.Is(err, pricing.ErrNegativeTotal):
		return http.StatusUnprocessableEntity
	case errors.As(err, &insufficient),
		errors.As(err, &illegal),
		errors.Is(err, order.ErrCartChanged),
		errors.Is(err, rating.ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, address.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"code":...,"message":...}. Storage and other
// unexpected failures are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	if code == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		httpmiddleware.WriteError(w, code, "internal error")
		return
	}

	var insufficient *stock.InsufficientStockError
	if !errors.As(err, &insufficient) {
		httpmiddleware.WriteError(w, code, err.Error())
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(err.Error())
	e.FieldStart("product_id")
	e.Str(insufficient.ProductID)
	e.FieldStart("available")
	e.Int(insufficient.Available)
	e.FieldStart("requested")
	e.Int(insufficient.Requested)
	e.ObjEnd()
	writeJSON(w, code, &e)
}
