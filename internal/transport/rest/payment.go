package rest

import (
	"net/http"

	"github.com/bazaarhq/bazaar/internal/service"
	"github.com/bazaarhq/bazaar/pkg/web"
)

// InitiatePayment opens a gateway session for one of the caller's orders.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID, ok := web.GetUserID(w, r, mLogger)
	if !ok {
		return
	}
	var dto service.InitiatePaymentDto
	if !web.DecodeJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	session, err := h.payments.Initiate(r.Context(), userID, dto)
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, session)
}

// VerifyPayment is the gateway callback. It is not authenticated: the authority identifies the payment.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	query := r.URL.Query()
	outcome, err := h.payments.Verify(r.Context(), query.Get("Authority"), query.Get("Status"))
	if err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, outcome)
}
