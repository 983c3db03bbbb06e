package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/domain/address"
)

func (h *Handler) listFavorites(w http.ResponseWriter, r *http.Request) {
	favs, err := h.svc.Favorites.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list favorites"))
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for _, f := range favs {
		encodeFavorite(&e, f)
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

// addFavorite answers 201 when the product was newly starred and 200 when
// it already was.
func (h *Handler) addFavorite(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	created, err := h.svc.Favorites.Add(r.Context(), userID(r), productID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("product_id")
	e.Str(productID)
	e.FieldStart("created")
	e.Bool(created)
	e.ObjEnd()
	writeJSON(w, code, &e)
}

func (h *Handler) removeFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Favorites.Remove(r.Context(), userID(r), chi.URLParam(r, "productID")); err != nil {
		writeError(w, r, errors.Wrap(err, "remove favorite"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeAddress(r *http.Request, a *address.Address) error {
	return decodeObject(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "full_name":
			return decodeString(d, &a.FullName)
		case "phone":
			return decodeString(d, &a.Phone)
		case "street", "address":
			return decodeString(d, &a.Street)
		case "ward":
			return decodeString(d, &a.Ward)
		case "district":
			return decodeString(d, &a.District)
		case "province":
			return decodeString(d, &a.Province)
		case "default":
			v, err := d.Bool()
			a.Default = v
			return err
		}
		return d.Skip()
	})
}

func addressID(r *http.Request) (int64, error) {
	return pathInt64(chi.URLParam(r, "id"), "address id")
}

func (h *Handler) respondAddress(w http.ResponseWriter, code int, a *address.Address) {
	var e jx.Encoder
	encodeAddress(&e, a)
	writeJSON(w, code, &e)
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Addresses.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list addresses"))
		return
	}
	var e jx.Encoder
	e.ArrStart()
	for i := range list {
		encodeAddress(&e, &list[i])
	}
	e.ArrEnd()
	writeJSON(w, http.StatusOK, &e)
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	a := &address.Address{UserID: userID(r)}
	if err := decodeAddress(r, a); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Addresses.Add(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondAddress(w, http.StatusCreated, a)
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	id, err := addressID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.svc.Addresses.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondAddress(w, http.StatusOK, a)
}

func (h *Handler) editAddress(w http.ResponseWriter, r *http.Request) {
	id, err := addressID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	a := &address.Address{ID: id, UserID: userID(r)}
	if err := decodeAddress(r, a); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Addresses.Edit(r.Context(), a); err != nil {
		writeError(w, r, err)
		return
	}
	h.respondAddress(w, http.StatusOK, a)
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	id, err := addressID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Addresses.Remove(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
