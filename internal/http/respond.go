package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/internal/subscription"
)

type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Details   string            `json:"details,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
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

// respondDomainError maps errors from the checkout core to HTTP responses.
func respondDomainError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		validation   *checkout.ValidationError
		card         *gateway.CardError
		unknown      *gateway.ConfirmationUnknownError
		initErr      *gateway.GatewayInitError
		intentErr    *gateway.IntentCreationError
		sessionErr   *gateway.SessionCreationError
		invalidState *subscription.InvalidStateError
		cancelErr    *subscription.CancellationError
		persistence  *ledger.PersistenceError
	)

	switch {
	case errors.As(err, &validation):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "validation failed",
			Code:   "validation_failed",
			Fields: validation.Fields,
		})
	case errors.As(err, &card):
		respondError(w, http.StatusPaymentRequired, "card_declined", card.Reason)
	case errors.As(err, &unknown):
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:     "payment status could not be confirmed, check the order before paying again",
			Code:      "payment_unconfirmed",
			Retryable: true,
		})
	case errors.As(err, &initErr), errors.As(err, &intentErr), errors.As(err, &sessionErr):
		log.Warn("payment processor error", "error", err)
		respondError(w, http.StatusBadGateway, "payment_unavailable", "payment could not be started, please try again")
	case errors.Is(err, checkout.ErrCheckoutUnavailable):
		log.Error("checkout unavailable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:     "checkout is temporarily unavailable, your cart was kept",
			Code:      "checkout_unavailable",
			Retryable: true,
		})
	case errors.As(err, &invalidState):
		respondError(w, http.StatusConflict, "invalid_state", invalidState.Error())
	case errors.As(err, &cancelErr):
		log.Warn("subscription cancellation failed", "error", err)
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:     "subscription could not be cancelled, please try again",
			Code:      "cancellation_failed",
			Retryable: true,
		})
	case errors.Is(err, ledger.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "record not found")
	case errors.As(err, &persistence):
		log.Error("ledger unavailable", "error", err)
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "records are temporarily unavailable")
	default:
		log.Error("unhandled error", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
