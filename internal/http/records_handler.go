package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/go-chi/chi/v5"
)

type RecordsHandler struct {
	records Records
	timeout time.Duration
	log     *slog.Logger
}

func NewRecordsHandler(records Records, timeout time.Duration, log *slog.Logger) *RecordsHandler {
	return &RecordsHandler{records: records, timeout: timeout, log: log}
}

// GET /api/v1/records/{id}
func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rec, err := h.records.Fetch(ctx, chi.URLParam(r, "id"))
	if err == nil && rec.BuyerID != getBuyerID(ctx) {
		err = ledger.ErrNotFound
	}
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toRecordDTO(rec))
}

type Subscriptions interface {
	List(ctx context.Context, buyerID string) ([]*domain.Record, error)
	Cancel(ctx context.Context, buyerID, recordID string) (*domain.Record, error)
}

type SubscriptionHandler struct {
	subscriptions Subscriptions
	timeout       time.Duration
	log           *slog.Logger
}

func NewSubscriptionHandler(subs Subscriptions, timeout time.Duration, log *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subs, timeout: timeout, log: log}
}

// GET /api/v1/subscriptions
func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	recs, err := h.subscriptions.List(ctx, getBuyerID(ctx))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toRecordDTOs(recs))
}

// DELETE /api/v1/subscriptions/{id}
func (h *SubscriptionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rec, err := h.subscriptions.Cancel(ctx, getBuyerID(ctx), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	respondJSON(w, http.StatusOK, toRecordDTO(rec))
}
