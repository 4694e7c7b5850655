package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/ledger"
)

var errStoreDown = errors.New("store down")

type fakeGateway struct {
	inlineErr error
}

func (f *fakeGateway) SubmitInline(_ context.Context, a gateway.PaymentAttempt, _ gateway.CardInput, _ string) (*gateway.InlineResult, error) {
	if f.inlineErr != nil {
		return nil, f.inlineErr
	}
	return &gateway.InlineResult{Status: gateway.IntentSucceeded, ProcessorRef: "pi_" + a.CorrelationID}, nil
}

func (f *fakeGateway) SubmitHosted(_ context.Context, a gateway.PaymentAttempt, _ gateway.ReturnURLs) (*gateway.HostedResult, error) {
	return &gateway.HostedResult{SessionID: "cs_" + a.CorrelationID, RedirectURL: "https://pay.example.com/cs_" + a.CorrelationID}, nil
}

type fakeConfirmer struct {
	mu     sync.Mutex
	status domain.Status
	err    error
}

func (f *fakeConfirmer) Confirm(_ context.Context, req *billing.ConfirmRequest) (*billing.ConfirmResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	st := f.status
	if st == "" {
		st = domain.StatusPending
	}
	return &billing.ConfirmResponse{RecordID: req.RecordID, Status: st, ProcessorRef: req.SessionID}, nil
}

type fakeCanceller struct {
	err error
}

func (f *fakeCanceller) CancelSubscription(_ context.Context, req *billing.CancelSubscriptionRequest) (*billing.CancelSubscriptionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &billing.CancelSubscriptionResponse{RecordID: req.RecordID, SubscriptionID: req.ProcessorRef}, nil
}

// brokenRepository fails every insert.
type brokenRepository struct {
	*ledger.MemoryRepository
}

func (brokenRepository) Insert(context.Context, *domain.Record) error {
	return errStoreDown
}

// deadlineCarts records the deadline of the context a handler passes in.
type deadlineCarts struct {
	*cart.Manager
	mu       sync.Mutex
	deadline time.Time
	ok       bool
}

func (d *deadlineCarts) Get(ctx context.Context, buyerID string) *cart.Store {
	d.mu.Lock()
	d.deadline, d.ok = ctx.Deadline()
	d.mu.Unlock()
	return d.Manager.Get(ctx, buyerID)
}
