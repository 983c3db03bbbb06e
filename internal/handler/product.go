package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, p := range products {
		h.encodeProduct(&e, p)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// getProduct also moves the product to the front of the caller's recently
// viewed list. Tracking failures are logged and never fail the request.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.svc.Products.GetByID(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if uid := userID(r); uid != "" {
		if err := h.svc.Recent.Touch(ctx, uid, p.ID); err != nil {
			zctx.From(ctx).Warn("Track recently viewed", zap.Error(err))
		}
	}
	var e jx.Encoder
	h.encodeProduct(&e, *p)
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.svc.Ratings.List(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, rv := range reviews {
		encodeReview(&e, rv)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) reviewProduct(w http.ResponseWriter, r *http.Request) {
	var (
		stars   int
		comment string
	)
	err := decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "rating":
			return decodeInt(d, &stars)
		case "comment":
			return decodeString(d, &comment)
		}
		return d.Skip()
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := h.svc.Ratings.Comment(r.Context(), userID(r), chi.URLParam(r, "productID"), stars, comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var e jx.Encoder
	encodeSummary(&e, *summary)
	writeJSON(w, http.StatusCreated, &e)
}

func (h *Handler) listRecent(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Recent.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list recently viewed"))
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, id := range ids {
		e.Str(id)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}
