package rest

import (
	"log/slog"
	"net/http"

	"github.com/bazaarhq/bazaar/internal/service"
	"github.com/bazaarhq/bazaar/pkg/web"
)

// PlaceOrder converts the caller's cart into an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.PlaceOrderDto
	if !web.DecodeOptionalJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	order, err := h.orders.PlaceOrder(r.Context(), userID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.InfoContext(r.Context(), "Order placed", slog.String("ID", order.ID.String()))
	web.RespondJSON(w, mLogger, http.StatusCreated, order)
}

// FindOrders lists the caller's orders.
func (h *Handler) FindOrders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	offset, limit, ok := pagination(w, r, mLogger)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	list, err := h.orders.FindForBuyer(r.Context(), userID, offset, limit)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindSellerOrders lists the orders that contain the caller's store items.
func (h *Handler) FindSellerOrders(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	offset, limit, ok := pagination(w, r, mLogger)
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	list, err := h.orders.FindForSeller(r.Context(), userID, offset, limit)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// FindOrderByID retrieves an order with its items.
func (h *Handler) FindOrderByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	order, err := h.orders.FindByID(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, order)
}

// UpdateOrderStatus lets the seller advance an order.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.UpdateStatusDto
	if !web.DecodeJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), userID, id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, order)
}

// CancelOrder cancels the caller's pending order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	order, err := h.orders.Cancel(r.Context(), userID, id)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, order)
}
