package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/go-playground/validator/v10"
)

type Ledger interface {
	Create(ctx context.Context, rec domain.Record) (string, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, processorRef string) (bool, error)
	AttachProcessorReference(ctx context.Context, id, ref string) error
}

type Gateway interface {
	SubmitInline(ctx context.Context, attempt gateway.PaymentAttempt, card gateway.CardInput, returnURL string) (*gateway.InlineResult, error)
	SubmitHosted(ctx context.Context, attempt gateway.PaymentAttempt, urls gateway.ReturnURLs) (*gateway.HostedResult, error)
}

type Options struct {
	// PublicURL is the externally visible base used for return URLs.
	PublicURL         string
	Currency          string
	MinOrderAmount    int64
	MinDonationAmount int64
}

type Orchestrator struct {
	ledger    Ledger
	gateway   Gateway
	opts      Options
	validator *validator.Validate
	log       *slog.Logger
}

func NewOrchestrator(ledger Ledger, gw Gateway, opts Options, log *slog.Logger) *Orchestrator {
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &Orchestrator{
		ledger:    ledger,
		gateway:   gw,
		opts:      opts,
		validator: newValidator(),
		log:       log,
	}
}

// Submit runs one checkout. A pending ledger record is always written before
// the processor is contacted.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (*Result, error) {
	snap, err := o.validate(req)
	if err != nil {
		return nil, err
	}

	rec := o.newRecord(req, snap)
	id, err := o.ledger.Create(ctx, rec)
	if err != nil {
		o.log.ErrorContext(ctx, "checkout aborted, ledger create failed", "buyer_id", req.BuyerID, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCheckoutUnavailable, err)
	}
	rec.ID = id

	attempt := gateway.PaymentAttempt{
		CorrelationID: id,
		Amount:        rec.Amount,
		Currency:      rec.Currency,
		Contact:       rec.Contact,
		Shipping:      rec.Shipping,
		Items:         rec.Items,
		Description:   rec.Description,
		Recurring:     rec.Recurring,
		Interval:      rec.Interval,
	}

	switch sub := req.Submission.(type) {
	case InlineSubmission:
		return o.submitInline(ctx, req, &rec, attempt, sub)
	case HostedSubmission:
		return o.submitHosted(ctx, &rec, attempt)
	default:
		return nil, fmt.Errorf("unsupported submission %T", sub)
	}
}

func (o *Orchestrator) newRecord(req Request, snap domain.CartSnapshot) domain.Record {
	rec := domain.Record{
		BuyerID:  req.BuyerID,
		Currency: o.opts.Currency,
		Contact: domain.Contact{
			Name:  req.Buyer.Name,
			Email: req.Buyer.Email,
			Phone: req.Buyer.Phone,
		},
		Shipping:      req.Buyer.Address,
		PaymentMethod: req.Submission.method(),
	}

	if req.Cart != nil {
		rec.Kind = domain.KindOrder
		rec.Items = snap.LineItems()
		rec.Amount = snap.Subtotal
		return rec
	}

	d := req.Donation
	rec.Kind = domain.KindDonation
	rec.Amount = d.Amount
	rec.Recurring = d.Recurring
	rec.Description = d.Designation
	if d.Recurring {
		rec.Interval = d.Interval
	}
	return rec
}

// markFailed records a definitive failure. A store error here is logged and
// left for the sweeper; the caller still sees the payment error.
func (o *Orchestrator) markFailed(ctx context.Context, id string, cause error) {
	if _, err := o.ledger.UpdateStatus(ctx, id, domain.StatusFailed, ""); err != nil {
		o.log.ErrorContext(ctx, "could not mark record failed", "record_id", id, "cause", cause, "error", err)
	}
}

// IsRetryable reports whether err leaves the record pending and the same
// submission may be resolved later.
func IsRetryable(err error) bool {
	var unknown *gateway.ConfirmationUnknownError
	return errors.As(err, &unknown) || errors.Is(err, ErrCheckoutUnavailable)
}
