package checkout

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
)

// submitHosted starts the redirect flow. The record stays pending until the
// buyer returns or a notification arrives.
func (o *Orchestrator) submitHosted(ctx context.Context, rec *domain.Record, attempt gateway.PaymentAttempt) (*Result, error) {
	urls := gateway.BuildReturnURLs(o.opts.PublicURL, rec.ID)
	res, err := o.gateway.SubmitHosted(ctx, attempt, urls)
	if err != nil {
		o.log.InfoContext(ctx, "hosted checkout not started", "record_id", rec.ID, "error", err)
		o.markFailed(ctx, rec.ID, err)
		return nil, fmt.Errorf("record %s: %w", rec.ID, err)
	}

	o.attach(ctx, rec.ID, res.SessionID)
	o.log.InfoContext(ctx, "hosted checkout started", "record_id", rec.ID, "session_id", res.SessionID)

	return &Result{
		RecordID:     rec.ID,
		Outcome:      OutcomeRedirect,
		ProcessorRef: res.SessionID,
		RedirectURL:  res.RedirectURL,
	}, nil
}
