package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/promo"
)

// respondCart prices the caller's cart without a promo and writes it.
func (h *Handler) respondCart(w http.ResponseWriter, r *http.Request, code int) {
	q, err := h.svc.Quoter.Quote(r.Context(), userID(r), "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeQuote(&e, q)
	writeJSON(w, code, &e)
}

func (h *Handler) viewCart(w http.ResponseWriter, r *http.Request) {
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req cart.AddRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			return decodeString(d, &req.ProductID)
		case "size":
			var s string
			if err := decodeString(d, &s); err != nil {
				return err
			}
			req.Size = cart.Size(s)
			return nil
		case "quantity":
			return decodeInt(d, &req.Quantity)
		case "buy_now":
			v, err := d.Bool()
			req.BuyNow = v
			return err
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, badRequest("product_id is required"))
		return
	}

	if _, err := h.svc.Carts.Add(r.Context(), userID(r), req); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func lineKey(r *http.Request) cart.Key {
	return cart.Key{
		ProductID: chi.URLParam(r, "productID"),
		Size:      cart.Size(chi.URLParam(r, "size")),
	}
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	quantity := 0
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key == "quantity" {
			return decodeInt(d, &quantity)
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.svc.Carts.Update(r.Context(), userID(r), lineKey(r), quantity); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

func (h *Handler) deleteCartItem(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Carts.Remove(r.Context(), userID(r), lineKey(r)); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondCart(w, r, http.StatusOK)
}

// validatePromo previews the cart total with a code. It runs the same
// pricing as checkout, so the preview and the committed order agree.
func (h *Handler) validatePromo(w http.ResponseWriter, r *http.Request) {
	var code string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key == "code" {
			return decodeString(d, &code)
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if promo.Normalize(code) == "" {
		writeError(w, r, badRequest("code is required"))
		return
	}

	q, err := h.svc.Quoter.Quote(r.Context(), userID(r), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeQuote(&e, q)
	writeJSON(w, http.StatusOK, &e)
}
