package rest

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/bazaarhq/bazaar/internal/errors"
	"github.com/bazaarhq/bazaar/pkg/web"
)

// Error codes of the response body.
const (
	codeValidation        = "validation"
	codeInsufficientStock = "insufficient_stock"
	codeNotFound          = "not_found"
	codeForbidden         = "forbidden"
	codeGatewayRejected   = "gateway_rejected"
	codeUnavailable       = "unavailable"
	codeRateLimited       = "rate_limited"
	codeInternal          = "internal"
)

type errorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	Remaining   *int32 `json:"remaining,omitempty"`
	GatewayCode *int   `json:"gateway_code,omitempty"`
}

// respondServiceError translates a service error into a status code and a structured body.
func respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "status", status, "error", err)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", "status", status, "error", err)
	}
	web.RespondJSON(w, logger, status, body)
}

func classify(err error) (int, errorResponse) {
	var stockErr *apperrors.InsufficientStockError
	if errors.As(err, &stockErr) {
		return http.StatusBadRequest, errorResponse{Error: stockErr.Error(), Code: codeInsufficientStock, Remaining: &stockErr.Remaining}
	}
	var upstream *apperrors.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadRequest, errorResponse{Error: upstream.Message, Code: codeGatewayRejected, GatewayCode: &upstream.Code}
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, errorResponse{Error: err.Error(), Code: codeValidation}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error(), Code: codeNotFound}
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: err.Error(), Code: codeForbidden}
	case errors.Is(err, apperrors.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: err.Error(), Code: codeRateLimited}
	case errors.Is(err, apperrors.ErrGatewayUnavailable):
		// hide transport details wrapped around the sentinel
		return http.StatusServiceUnavailable, errorResponse{Error: apperrors.ErrGatewayUnavailable.Error(), Code: codeUnavailable}
	case errors.Is(err, apperrors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Code: codeUnavailable}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: codeInternal}
	}
}
