// Package rest provides the HTTP API of the bazaar service.
package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bazaarhq/bazaar/internal/service"
	"github.com/bazaarhq/bazaar/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	carts    service.CartService
	orders   service.OrderService
	payments service.PaymentService
	otps     service.OTPService
	db       Pinger
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates the HTTP handler. db is pinged by the health check.
func NewHandler(carts service.CartService, orders service.OrderService, payments service.PaymentService,
	otps service.OTPService, db Pinger, logger *slog.Logger) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		payments: payments,
		otps:     otps,
		db:       db,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes mounts the API under /api/v1. authenticate guards every route
// except the gateway callback, the OTP endpoints and the health check.
func (h *Handler) RegisterRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Get("/healthz", h.HealthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/payments/verify", h.VerifyPayment)
		r.Post("/otp/request", h.RequestOTP)
		r.Post("/otp/verify", h.VerifyOTP)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Post("/items", h.AddCartItem)
				r.Patch("/items/{id}", h.UpdateCartItem)
				r.Delete("/items/{id}", h.RemoveCartItem)
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.FindOrders)
				r.Post("/", h.PlaceOrder)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.FindOrderByID)
					r.Patch("/status", h.UpdateOrderStatus)
					r.Post("/cancel", h.CancelOrder)
				})
			})
			r.Get("/seller/orders", h.FindSellerOrders)
			r.Post("/payments", h.InitiatePayment)
		})
	})
}

// HealthCheck answers 200 while the database is reachable.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.loggerWithReqID(r).WarnContext(r.Context(), "Health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// pagination reads offset and limit. It writes a 400 response and returns false on bad values.
func pagination(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (offset, limit int32, ok bool) {
	offset, ok = web.QueryInt32(w, r, logger, "offset", 0, web.Gte(0))
	if !ok {
		return 0, 0, false
	}
	limit, ok = web.QueryInt32(w, r, logger, "limit", defaultLimit, web.Between(1, maxLimit))
	return offset, limit, ok
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID, _ := web.GetRequestID(r.Context())
	return h.logger.With("request_id", reqID)
}
