package handler

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/order"
)

func decodeShipping(d *jx.Decoder, s *order.ShippingInfo) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "full_name":
			return decodeString(d, &s.FullName)
		case "email":
			return decodeString(d, &s.Email)
		case "phone":
			return decodeString(d, &s.Phone)
		case "street", "address":
			return decodeString(d, &s.Street)
		case "ward":
			return decodeString(d, &s.Ward)
		case "district":
			return decodeString(d, &s.District)
		case "province":
			return decodeString(d, &s.Province)
		case "note":
			return decodeString(d, &s.Note)
		}
		return d.Skip()
	})
}

func decodePayment(d *jx.Decoder, p *order.PaymentInfo) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "method":
			var m string
			if err := decodeString(d, &m); err != nil {
				return err
			}
			p.Method = order.PaymentMethod(m)
			return nil
		case "bank_name":
			return decodeString(d, &p.BankName)
		case "bank_bin":
			return decodeString(d, &p.BankBIN)
		}
		return d.Skip()
	})
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req order.CheckoutRequest
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "shipping":
			return decodeShipping(d, &req.Shipping)
		case "payment":
			return decodePayment(d, &req.Payment)
		case "promo_code":
			return decodeString(d, &req.PromoCode)
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.Orders.Checkout(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{Search: q.Get("search")}
	if s := q.Get("status"); s != "" {
		st := order.Status(s)
		f.Status = &st
	}

	orders, err := h.svc.Orders.List(r.Context(), userID(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range orders {
		e.ObjStart()
		encodeOrderSummary(&e, &orders[i])
		e.ObjEnd()
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), userID(r), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondOrder(w, o)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Cancel(r.Context(), userID(r), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondOrder(w, o)
}

func (h *Handler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key == "status" {
			return decodeString(d, &status)
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.svc.Orders.Advance(r.Context(), chi.URLParam(r, "number"), order.Status(status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondOrder(w, o)
}

func (h *Handler) respondOrder(w http.ResponseWriter, o *order.Order) {
	var e jx.Encoder
	encodeOrder(&e, o)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) reviewOrder(w http.ResponseWriter, r *http.Request) {
	var inputs []order.ReviewInput
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		if key != "reviews" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			var in order.ReviewInput
			err := d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "product_id":
					return decodeString(d, &in.ProductID)
				case "rating":
					return decodeInt(d, &in.Rating)
				case "comment":
					return decodeString(d, &in.Comment)
				}
				return d.Skip()
			})
			inputs = append(inputs, in)
			return err
		})
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	summaries, err := h.svc.Orders.Review(r.Context(), userID(r), chi.URLParam(r, "number"), inputs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, s := range summaries {
		encodeSummary(&e, s)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) rebuyOrder(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Orders.Rebuy(r.Context(), userID(r), chi.URLParam(r, "number"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	failed := make([]cart.Key, 0, len(res.Failed))
	for k := range res.Failed {
		failed = append(failed, k)
	}
	sort.Slice(failed, func(i, j int) bool {
		if failed[i].ProductID != failed[j].ProductID {
			return failed[i].ProductID < failed[j].ProductID
		}
		return failed[i].Size < failed[j].Size
	})

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("added")
	e.ArrStart()
	for _, l := range res.Added {
		encodeCartLine(&e, l)
	}
	e.ArrEnd()
	e.FieldStart("failed")
	e.ArrStart()
	for _, k := range failed {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(k.ProductID)
		e.FieldStart("size")
		e.Str(string(k.Size))
		e.FieldStart("reason")
		e.Str(res.Failed[k].Error())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
