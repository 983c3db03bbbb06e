// Package handler exposes the storefront over HTTP. Routing uses chi and all
// bodies are read and written with jx.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/storefront/internal/domain/address"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/favorite"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/pricing"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/rating"
	"github.com/xenking/storefront/internal/domain/recent"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
	// PromoRateLimit throttles promo validation, which is the endpoint
	// people use to guess codes.
	PromoRateLimit httpmiddleware.RateLimitConfig
}

// Services are the domain dependencies of the Handler.
type Services struct {
	Products  product.Repository
	Carts     *cart.Service
	Quoter    *pricing.Quoter
	Orders    *order.Service
	Ratings   *rating.Service
	Favorites favorite.Repository
	Addresses *address.Book
	Recent    recent.Tracker
}

// Handler serves the /api routes.
type Handler struct {
	cfg      Config
	svc      Services
	security *Security
}

// NewHandler creates a Handler. A nil Recent tracker disables the recently
// viewed list.
func NewHandler(cfg Config, svc Services, security *Security) *Handler {
	if svc.Recent == nil {
		svc.Recent = recent.Nop{}
	}
	return &Handler{cfg: cfg, svc: svc, security: security}
}

// Router returns a chi router with every API route mounted under /api.
// Background work of the router (rate limiter eviction) stops with ctx.
func (h *Handler) Router(ctx context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(
		httpmiddleware.LogRequests(),
		httpmiddleware.Labeler(),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httpmiddleware.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	promoLimit := httpmiddleware.RateLimit(ctx, h.cfg.PromoRateLimit)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.security.Optional)
			r.Get("/products", h.listProducts)
			r.Get("/products/{productID}", h.getProduct)
			r.Get("/products/{productID}/reviews", h.listReviews)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.security.Require)

			r.Post("/products/{productID}/reviews", h.reviewProduct)
			r.Get("/me/recent", h.listRecent)

			r.Get("/cart", h.viewCart)
			r.Post("/cart/items", h.addCartItem)
			r.Patch("/cart/items/{productID}/{size}", h.updateCartItem)
			r.Delete("/cart/items/{productID}/{size}", h.deleteCartItem)

			r.With(promoLimit).Post("/promo/validate", h.validatePromo)
			r.Post("/checkout", h.checkout)

			r.Get("/orders", h.listOrders)
			r.Get("/orders/{number}", h.getOrder)
			r.Post("/orders/{number}/cancel", h.cancelOrder)
			r.With(h.security.RequireScope(auth.ScopeAdmin)).Post("/orders/{number}/status", h.advanceOrder)
			r.Post("/orders/{number}/review", h.reviewOrder)
			r.Post("/orders/{number}/rebuy", h.rebuyOrder)

			r.Get("/favorites", h.listFavorites)
			r.Put("/favorites/{productID}", h.addFavorite)
			r.Delete("/favorites/{productID}", h.removeFavorite)

			r.Get("/addresses", h.listAddresses)
			r.Post("/addresses", h.addAddress)
			r.Get("/addresses/{id}", h.getAddress)
			r.Put("/addresses/{id}", h.editAddress)
			r.Delete("/addresses/{id}", h.deleteAddress)
		})
	})
	return r
}

// userID returns the caller authenticated by Security, or "".
func userID(r *http.Request) string {
	if k, ok := auth.FromContext(r.Context()); ok {
		return k.UserID
	}
	return ""
}
