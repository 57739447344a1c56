package rest

import (
	"net/http"

	"github.com/bazaarhq/bazaar/internal/service"
	"github.com/bazaarhq/bazaar/pkg/web"
)

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	cart, err := h.carts.GetCart(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, cart)
}

// AddCartItem adds a store item to the caller's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.AddCartItemDto
	if !web.DecodeJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	mLogger.DebugContext(r.Context(), "Received request to add cart item", "store_item_id", dto.StoreItemID, "quantity", dto.Quantity)
	item, err := h.carts.AddItem(r.Context(), userID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusCreated, item)
}

// UpdateCartItem changes the quantity of a cart line.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.UpdateCartItemDto
	if !web.DecodeJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	item, err := h.carts.UpdateItem(r.Context(), userID, id, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, item)
}

// RemoveCartItem deletes a cart line.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id, ok := web.ParseID(w, r, mLogger, "id")
	if !ok {
		return
	}
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	if err := h.carts.RemoveItem(r.Context(), userID, id); err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
