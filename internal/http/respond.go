package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		httpStatus int
		code       string
		message    string
	)

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		httpStatus, code, message = http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 99"
	case errors.Is(err, catalog.ErrProductNotFound):
		httpStatus, code, message = http.StatusNotFound, "not_found", "product not found"
	case errors.Is(err, catalog.ErrInvalidProduct):
		httpStatus, code, message = http.StatusBadRequest, "invalid_product", "invalid product"
	case errors.Is(err, catalog.ErrDuplicateProduct):
		httpStatus, code, message = http.StatusConflict, "already_exists", "product already exists"
	case errors.Is(err, session.ErrInvalidSessionID):
		httpStatus, code, message = http.StatusBadRequest, "invalid_session", "invalid session id"
	case errors.Is(err, catalog.ErrNetworkFailure):
		httpStatus, code, message = http.StatusServiceUnavailable, "service_unavailable", "catalog unavailable"
	case errors.Is(err, session.ErrManagerClosed):
		httpStatus, code, message = http.StatusServiceUnavailable, "service_unavailable", "shutting down"
	default:
		httpStatus, code, message = http.StatusInternalServerError, "internal_error", "internal server error"
	}

	respondJSON(w, httpStatus, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: err.Error(),
	})
}
