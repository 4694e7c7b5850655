package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/internal/reconcile"
)

type Records interface {
	Fetch(ctx context.Context, id string) (*domain.Record, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, recordID string, hint reconcile.Hint) (*domain.Record, error)
}

// ReturnHandler serves the URL the processor sends the buyer back to.
type ReturnHandler struct {
	records    Records
	reconciler Reconciler
	carts      Carts
	timeout    time.Duration
	log        *slog.Logger
}

func NewReturnHandler(records Records, reconciler Reconciler, carts Carts, timeout time.Duration, log *slog.Logger) *ReturnHandler {
	return &ReturnHandler{
		records:    records,
		reconciler: reconciler,
		carts:      carts,
		timeout:    timeout,
		log:        log,
	}
}

// GET /api/v1/checkout/return?outcome=&record_id=&session_id=&payment_intent=
func (h *ReturnHandler) Return(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	buyerID := getBuyerID(ctx)

	q := r.URL.Query()
	recordID := q.Get("record_id")
	if recordID == "" {
		respondError(w, http.StatusBadRequest, "missing_record_id", "record_id is required")
		return
	}

	rec, err := h.records.Fetch(ctx, recordID)
	if err == nil && rec.BuyerID != buyerID {
		err = ledger.ErrNotFound
	}
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	hint := reconcile.Hint{SessionID: q.Get("session_id"), PaymentIntentID: q.Get("payment_intent")}
	reconciled, err := h.reconciler.Reconcile(ctx, recordID, hint)
	var rerr *reconcile.ReconciliationError
	if errors.As(err, &rerr) {
		respondJSON(w, http.StatusAccepted, ReturnResponseDTO{
			Outcome: q.Get("outcome"),
			Record:  toRecordDTO(rec),
			Pending: true,
		})
		return
	}
	if err != nil {
		respondDomainError(w, h.log, err)
		return
	}

	// only the visit that settles the order empties the cart; a refresh of
	// the return page must not drop items added since
	if reconciled.Kind == domain.KindOrder && rec.Status == domain.StatusPending && reconciled.Status == domain.StatusPaid {
		h.carts.Get(ctx, buyerID).Clear(ctx)
	}

	status := http.StatusOK
	if reconciled.Status == domain.StatusPending {
		status = http.StatusAccepted
	}
	respondJSON(w, status, ReturnResponseDTO{
		Outcome: q.Get("outcome"),
		Record:  toRecordDTO(reconciled),
		Pending: reconciled.Status == domain.StatusPending,
	})
}
