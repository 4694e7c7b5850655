package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
)

func (o *Orchestrator) submitInline(ctx context.Context, req Request, rec *domain.Record, attempt gateway.PaymentAttempt, sub InlineSubmission) (*Result, error) {
	returnURL := gateway.InlineReturnURL(o.opts.PublicURL, rec.ID)
	res, err := o.gateway.SubmitInline(ctx, attempt, sub.Card, returnURL)
	if err != nil {
		var unknown *gateway.ConfirmationUnknownError
		if errors.As(err, &unknown) {
			// the charge may have gone through; reconciliation settles it
			o.attach(ctx, rec.ID, unknown.IntentID)
			o.log.WarnContext(ctx, "inline payment outcome unknown, record left pending", "record_id", rec.ID, "error", err)
			return nil, fmt.Errorf("record %s: %w", rec.ID, err)
		}

		o.log.InfoContext(ctx, "inline payment failed", "record_id", rec.ID, "error", err)
		o.markFailed(ctx, rec.ID, err)
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	out := &Result{
		RecordID:     rec.ID,
		ProcessorRef: res.ProcessorRef,
	}

	switch res.Status {
	case gateway.IntentSucceeded:
		if _, err := o.ledger.UpdateStatus(ctx, rec.ID, domain.StatusPaid, res.ProcessorRef); err != nil {
			// money moved; the sweeper finalizes the record from the processor reference
			o.attach(ctx, rec.ID, res.ProcessorRef)
			o.log.ErrorContext(ctx, "payment succeeded but ledger update failed", "record_id", rec.ID, "error", err)
		}
		if req.Cart != nil {
			req.Cart.Clear(ctx)
		}
		out.Outcome = OutcomeSucceeded
	case gateway.IntentRequiresAction:
		o.attach(ctx, rec.ID, res.ProcessorRef)
		out.Outcome = OutcomeRequiresAction
		out.ClientSecret = res.ClientSecret
	default:
		o.attach(ctx, rec.ID, res.ProcessorRef)
		out.Outcome = OutcomeProcessing
	}

	o.log.InfoContext(ctx, "inline payment submitted", "record_id", rec.ID, "outcome", out.Outcome)
	return out, nil
}

func (o *Orchestrator) attach(ctx context.Context, id, ref string) {
	if err := o.ledger.AttachProcessorReference(ctx, id, ref); err != nil {
		o.log.WarnContext(ctx, "could not attach processor reference", "record_id", id, "ref", ref, "error", err)
	}
}
