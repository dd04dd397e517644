package router

import (
	"net/http"
	"time"

	"shopfront/internal/auth"
	"shopfront/internal/handler"
	"shopfront/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Products *handler.ProductHandler
	Carts    *handler.CartHandler
	Coupons  *handler.CouponHandler
	Orders   *handler.OrderHandler
}

// Options configures authentication for the router.
type Options struct {
	Tokens        *auth.Tokens
	WebhookSecret string
	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Applied in order: RequestID -> Recovery -> Logging -> CORS
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	if opts.RequestTimeout > 0 {
		r.Use(chimw.Timeout(opts.RequestTimeout))
	}

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	authenticate := middleware.Authenticate(opts.Tokens, logger)
	adminOnly := middleware.RequireRole(logger, auth.RoleAdmin)
	userOnly := middleware.RequireRole(logger, auth.RoleUser)
	anyRole := middleware.RequireRole(logger, auth.RoleUser, auth.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.Products.List)
			r.Get("/{id}", h.Products.GetByID)
			r.With(authenticate, adminOnly).Post("/", h.Products.Create)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(authenticate, userOnly)
			r.Get("/", h.Carts.Get)
			r.Post("/", h.Carts.AddItem)
			r.Delete("/", h.Carts.Clear)
			r.Post("/apply-coupon", h.Carts.ApplyCoupon)
			r.Put("/{productId}", h.Carts.SetQuantity)
			r.Delete("/{productId}", h.Carts.RemoveItem)
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Use(authenticate, adminOnly)
			r.Get("/", h.Coupons.List)
			r.Post("/", h.Coupons.Create)
			r.Get("/{id}", h.Coupons.Get)
			r.Put("/{id}", h.Coupons.Update)
			r.Delete("/{id}", h.Coupons.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.APIKeyAuth(middleware.WebhookSecretHeader, opts.WebhookSecret, logger)).
				Post("/webhook", h.Orders.Webhook)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.With(userOnly).Post("/createCashOrder", h.Orders.CreateCashOrder)
				r.With(userOnly).Post("/createOnlineOrder", h.Orders.CreateOnlineOrder)
				r.With(anyRole).Get("/", h.Orders.List)
				r.With(anyRole).Get("/{id}", h.Orders.GetByID)
				r.With(adminOnly).Put("/{id}", h.Orders.UpdateStatus)
				r.With(anyRole).Post("/{id}/invoice", h.Orders.CreateInvoice)
			})
		})
	})

	return r
}
