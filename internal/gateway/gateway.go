package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"github.com/sony/gobreaker/v2"
)

// PaymentAttempt carries the parameters of one submission. CorrelationID is
// the ledger record id.
type PaymentAttempt struct {
	CorrelationID string
	Amount        int64
	Currency      string
	Contact       domain.Contact
	Shipping      *domain.Address
	Items         []domain.LineItem
	Description   string
	Recurring     bool
	Interval      domain.Interval
}

func (a PaymentAttempt) idempotencyKey(op string) string {
	return fmt.Sprintf("record-%s-%s", a.CorrelationID, op)
}

// CardInput is the capture handle produced by the processor's card element.
// The card element creates the payment method with the buyer's billing
// details attached, so confirming with the handle carries them. The processor
// rejects billing data sent alongside an existing payment method; the contact
// travels on the intent instead as receipt email and shipping.
type CardInput struct {
	PaymentMethodID string
}

type InlineResult struct {
	Status        IntentStatus
	ProcessorRef  string
	ClientSecret  string
	FailureReason string
}

type HostedResult struct {
	SessionID   string
	RedirectURL string
}

type Options struct {
	Timeout time.Duration
	Breaker circuitbreaker.Config
}

// Gateway drives the processor through the inline and hosted flows.
type Gateway struct {
	mu       sync.Mutex
	factory  func() (Processor, error)
	proc     Processor
	intents  *gobreaker.CircuitBreaker[*Intent]
	sessions *gobreaker.CircuitBreaker[*Session]
	timeout  time.Duration
	log      *slog.Logger
}

// New builds a gateway. The processor is created by factory on first use.
func New(factory func() (Processor, error), opts Options, log *slog.Logger) *Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Breaker.Name == "" {
		opts.Breaker = circuitbreaker.DefaultConfig("payment-processor")
	}
	// card rejections are a healthy processor answering
	opts.Breaker.IsSuccessful = func(err error) bool {
		return err == nil || isCardError(err)
	}

	intentCfg := opts.Breaker
	intentCfg.Name = opts.Breaker.Name + "-intents"
	sessionCfg := opts.Breaker
	sessionCfg.Name = opts.Breaker.Name + "-sessions"

	return &Gateway{
		factory:  factory,
		intents:  circuitbreaker.New[*Intent](intentCfg, log),
		sessions: circuitbreaker.New[*Session](sessionCfg, log),
		timeout:  opts.Timeout,
		log:      log,
	}
}

func (g *Gateway) processor() (Processor, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.proc != nil {
		return g.proc, nil
	}
	p, err := g.factory()
	if err != nil {
		return nil, &GatewayInitError{Err: err}
	}
	g.proc = p
	return p, nil
}

// SubmitInline creates a payment for the attempt and confirms it with the
// captured card. Requires-action and processing results come back without
// error and leave the outcome to reconciliation.
func (g *Gateway) SubmitInline(ctx context.Context, attempt PaymentAttempt, card CardInput, returnURL string) (*InlineResult, error) {
	proc, err := g.processor()
	if err != nil {
		return nil, err
	}

	intent, err := g.callIntent(ctx, func(ctx context.Context) (*Intent, error) {
		return proc.CreateIntent(ctx, IntentRequest{
			RecordID:       attempt.CorrelationID,
			IdempotencyKey: attempt.idempotencyKey("intent"),
			Amount:         attempt.Amount,
			Currency:       attempt.Currency,
			Description:    attempt.Description,
			Contact:        attempt.Contact,
			Shipping:       attempt.Shipping,
		})
	})
	if err != nil {
		if isCardError(err) {
			return nil, err
		}
		return nil, &IntentCreationError{Err: err}
	}

	confirmed, err := g.callIntent(ctx, func(ctx context.Context) (*Intent, error) {
		return proc.ConfirmIntent(ctx, ConfirmRequest{
			IntentID:       intent.ID,
			IdempotencyKey: attempt.idempotencyKey("confirm"),
			PaymentMethod:  card.PaymentMethodID,
			ReturnURL:      returnURL,
		})
	})
	if err != nil {
		if isCardError(err) {
			return nil, err
		}
		return nil, &ConfirmationUnknownError{IntentID: intent.ID, Err: err}
	}

	res := &InlineResult{
		Status:        confirmed.Status,
		ProcessorRef:  confirmed.ID,
		ClientSecret:  confirmed.ClientSecret,
		FailureReason: confirmed.FailureReason,
	}
	if res.ClientSecret == "" {
		res.ClientSecret = intent.ClientSecret
	}

	switch confirmed.Status {
	case IntentSucceeded, IntentRequiresAction, IntentProcessing:
		return res, nil
	case IntentFailed:
		reason := confirmed.FailureReason
		if reason == "" {
			reason = "payment was declined"
		}
		return res, &CardError{Reason: reason}
	default:
		return res, &ConfirmationUnknownError{
			IntentID: confirmed.ID,
			Err:      fmt.Errorf("unexpected status %q after confirm", confirmed.Status),
		}
	}
}

// SubmitHosted requests a hosted checkout session and returns where to send
// the buyer. The payment outcome is only known after the buyer returns.
func (g *Gateway) SubmitHosted(ctx context.Context, attempt PaymentAttempt, urls ReturnURLs) (*HostedResult, error) {
	proc, err := g.processor()
	if err != nil {
		return nil, err
	}

	session, err := g.callSession(ctx, func(ctx context.Context) (*Session, error) {
		return proc.CreateSession(ctx, SessionRequest{
			RecordID:       attempt.CorrelationID,
			IdempotencyKey: attempt.idempotencyKey("session"),
			Email:          attempt.Contact.Email,
			Currency:       attempt.Currency,
			SuccessURL:     urls.Success,
			CancelURL:      urls.Cancel,
			Items:          attempt.Items,
			Amount:         attempt.Amount,
			Description:    attempt.Description,
			Recurring:      attempt.Recurring,
			Interval:       attempt.Interval,
		})
	})
	if err != nil {
		return nil, &SessionCreationError{Err: err}
	}
	if session.URL == "" {
		return nil, &SessionCreationError{Err: ErrNoRedirect}
	}

	return &HostedResult{SessionID: session.ID, RedirectURL: session.URL}, nil
}

func (g *Gateway) LookupIntent(ctx context.Context, id string) (*Intent, error) {
	proc, err := g.processor()
	if err != nil {
		return nil, err
	}
	return g.callIntent(ctx, func(ctx context.Context) (*Intent, error) {
		return proc.GetIntent(ctx, id)
	})
}

func (g *Gateway) LookupSession(ctx context.Context, id string) (*Session, error) {
	proc, err := g.processor()
	if err != nil {
		return nil, err
	}
	return g.callSession(ctx, func(ctx context.Context) (*Session, error) {
		return proc.GetSession(ctx, id)
	})
}

func (g *Gateway) CancelSubscription(ctx context.Context, id string) error {
	proc, err := g.processor()
	if err != nil {
		return err
	}
	_, err = g.callSession(ctx, func(ctx context.Context) (*Session, error) {
		return nil, proc.CancelSubscription(ctx, id)
	})
	return err
}

func (g *Gateway) callIntent(ctx context.Context, fn func(context.Context) (*Intent, error)) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.intents.Execute(func() (*Intent, error) { return fn(ctx) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		g.log.WarnContext(ctx, "processor call short-circuited", "breaker", g.intents.Name())
	}
	return res, err
}

func (g *Gateway) callSession(ctx context.Context, fn func(context.Context) (*Session, error)) (*Session, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	res, err := g.sessions.Execute(func() (*Session, error) { return fn(ctx) })
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		g.log.WarnContext(ctx, "processor call short-circuited", "breaker", g.sessions.Name())
	}
	return res, err
}
