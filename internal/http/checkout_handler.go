package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
)

type Submitter interface {
	Submit(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type CheckoutHandler struct {
	orchestrator Submitter
	carts        Carts
	timeout      time.Duration
	log          *slog.Logger
}

func NewCheckoutHandler(orchestrator Submitter, carts Carts, timeout time.Duration, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		carts:        carts,
		timeout:      timeout,
		log:          log,
	}
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	buyerID := getBuyerID(ctx)

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	sub, ok := submission(req.Payment)
	if !ok {
		respondDomainError(w, h.log, unsupportedMethod())
		return
	}

	res, err := h.orchestrator.Submit(ctx, checkout.Request{
		BuyerID:    buyerID,
		Buyer:      buyerInput(req.Buyer),
		Cart:       h.carts.Get(ctx, buyerID),
		Submission: sub,
	})
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

// POST /api/v1/donations
func (h *CheckoutHandler) Donate(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req DonationRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	amount, err := domain.ParseAmount(req.Amount)
	if err != nil {
		respondDomainError(w, h.log, &checkout.ValidationError{Fields: map[string]string{
			"amount": "must be an amount with at most 2 decimals",
		}})
		return
	}
	sub, ok := submission(req.Payment)
	if !ok {
		respondDomainError(w, h.log, unsupportedMethod())
		return
	}

	res, err := h.orchestrator.Submit(ctx, checkout.Request{
		BuyerID: getBuyerID(ctx),
		Buyer:   buyerInput(req.Buyer),
		Donation: &checkout.DonationSelection{
			Amount:      amount,
			Recurring:   req.Recurring,
			Interval:    domain.Interval(req.Interval),
			Designation: req.Designation,
		},
		Submission: sub,
	})
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

// submission maps the payment selector. An empty method yields nil so that
// validation reports it as missing.
func submission(p PaymentDTO) (checkout.Submission, bool) {
	switch domain.PaymentMethod(p.Method) {
	case "":
		return nil, true
	case domain.PaymentMethodInlineCard:
		return checkout.InlineSubmission{Card: gateway.CardInput{PaymentMethodID: p.PaymentMethodID}}, true
	case domain.PaymentMethodHostedRedirect:
		return checkout.HostedSubmission{}, true
	}
	return nil, false
}

func unsupportedMethod() error {
	return &checkout.ValidationError{Fields: map[string]string{"payment_method": "is not supported"}}
}

func buyerInput(b BuyerDTO) checkout.BuyerInput {
	return checkout.BuyerInput{
		Name:    b.Name,
		Email:   b.Email,
		Phone:   b.Phone,
		Address: b.address(),
	}
}
