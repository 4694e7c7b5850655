package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/internal/domain"
	"golang.org/x/sync/singleflight"
)

type Ledger interface {
	Fetch(ctx context.Context, id string) (*domain.Record, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, processorRef string) (bool, error)
}

// Confirmer verifies a record's payment with the processor.
type Confirmer interface {
	Confirm(ctx context.Context, req *billing.ConfirmRequest) (*billing.ConfirmResponse, error)
}

// Hint carries processor ids taken from a return URL.
type Hint struct {
	SessionID       string
	PaymentIntentID string
}

// ReconciliationError means the confirmation endpoint could not be reached.
// The record is left pending.
type ReconciliationError struct {
	RecordID string
	Err      error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile record %s: %v", e.RecordID, e.Err)
}

func (e *ReconciliationError) Unwrap() error { return e.Err }

// flightTimeout bounds one shared reconciliation, which outlives the caller
// that started it.
const flightTimeout = 30 * time.Second

type Reconciler struct {
	ledger    Ledger
	confirmer Confirmer
	log       *slog.Logger
	group     singleflight.Group
	timeout   time.Duration
}

func NewReconciler(ledger Ledger, confirmer Confirmer, log *slog.Logger) *Reconciler {
	return &Reconciler{ledger: ledger, confirmer: confirmer, log: log, timeout: flightTimeout}
}

// Reconcile settles a pending record against the processor and returns the
// record as stored afterwards. Settled records are returned untouched.
// Concurrent calls for the same record share one confirmation. A caller whose
// ctx ends stops waiting with a ReconciliationError; the shared work goes on
// for the others.
func (r *Reconciler) Reconcile(ctx context.Context, recordID string, hint Hint) (*domain.Record, error) {
	ch := r.group.DoChan(recordID, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.reconcile(fctx, recordID, hint)
	})

	select {
	case <-ctx.Done():
		return nil, &ReconciliationError{RecordID: recordID, Err: ctx.Err()}
	case res := <-ch:
		if res.Shared {
			r.log.DebugContext(ctx, "reconciliation shared with concurrent caller", "record_id", recordID)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Record), nil
	}
}

func (r *Reconciler) reconcile(ctx context.Context, recordID string, hint Hint) (*domain.Record, error) {
	rec, err := r.ledger.Fetch(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status.Settled() {
		return rec, nil
	}

	req := confirmRequest(rec, hint)
	if req.SessionID == "" && req.PaymentIntentID == "" {
		r.log.WarnContext(ctx, "pending record has no processor reference, nothing to confirm", "record_id", recordID)
		return rec, nil
	}

	resp, err := r.confirmer.Confirm(ctx, req)
	if err != nil {
		r.log.WarnContext(ctx, "confirmation failed, record left pending", "record_id", recordID, "error", err)
		return nil, &ReconciliationError{RecordID: recordID, Err: err}
	}

	if !resp.Status.Settled() {
		return rec, nil
	}

	applied, err := r.ledger.UpdateStatus(ctx, recordID, resp.Status, resp.ProcessorRef)
	if err != nil {
		return nil, err
	}
	r.log.InfoContext(ctx, "record reconciled",
		"record_id", recordID, "status", resp.Status, "applied", applied, "reason", resp.Reason)

	return r.ledger.Fetch(ctx, recordID)
}

// confirmRequest prefers ids from the return URL and falls back to the
// reference attached at submission.
func confirmRequest(rec *domain.Record, hint Hint) *billing.ConfirmRequest {
	req := &billing.ConfirmRequest{
		RecordID:        rec.ID,
		SessionID:       hint.SessionID,
		PaymentIntentID: hint.PaymentIntentID,
	}
	if req.SessionID != "" || req.PaymentIntentID != "" || rec.ProcessorRef == "" {
		return req
	}

	switch rec.PaymentMethod {
	case domain.PaymentMethodHostedRedirect:
		req.SessionID = rec.ProcessorRef
	case domain.PaymentMethodInlineCard:
		req.PaymentIntentID = rec.ProcessorRef
	}
	return req
}
