package rest

import (
	"net/http"

	"github.com/bazaarhq/bazaar/internal/service"
	"github.com/bazaarhq/bazaar/pkg/web"
)

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.OTPRequestDto
	if !web.DecodeJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	if err := h.otps.Request(r.Context(), dto.Username); err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, messageResponse{Message: "OTP sent."})
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var dto service.OTPVerifyDto
	if !web.DecodeJSON(w, r, mLogger, h.validate, &dto) {
		return
	}
	if err := h.otps.Verify(r.Context(), dto.Username, dto.OTP); err != nil {
		respondServiceError(w, r, mLogger, err)
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, messageResponse{Message: "OTP verified."})
}
