package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/ledger"
)

var errDown = errors.New("document store unavailable")

// callLog records the order in which collaborators are called.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

// recordingLedger wraps a real ledger and logs every call.
type recordingLedger struct {
	*ledger.Ledger
	log       *callLog
	createErr error
	updateErr error
}

func (r *recordingLedger) Create(ctx context.Context, rec domain.Record) (string, error) {
	r.log.add("ledger.create")
	if r.createErr != nil {
		return "", r.createErr
	}
	return r.Ledger.Create(ctx, rec)
}

func (r *recordingLedger) UpdateStatus(ctx context.Context, id string, status domain.Status, ref string) (bool, error) {
	r.log.add("ledger.update:" + string(status))
	if r.updateErr != nil {
		return false, r.updateErr
	}
	return r.Ledger.UpdateStatus(ctx, id, status, ref)
}

func (r *recordingLedger) AttachProcessorReference(ctx context.Context, id, ref string) error {
	r.log.add("ledger.attach")
	return r.Ledger.AttachProcessorReference(ctx, id, ref)
}

type mockGateway struct {
	log *callLog

	inlineResult *gateway.InlineResult
	inlineErr    error
	hostedResult *gateway.HostedResult
	hostedErr    error

	attempts []gateway.PaymentAttempt
	urls     []gateway.ReturnURLs
}

func (m *mockGateway) SubmitInline(_ context.Context, attempt gateway.PaymentAttempt, _ gateway.CardInput, _ string) (*gateway.InlineResult, error) {
	m.log.add("gateway.inline")
	m.attempts = append(m.attempts, attempt)
	if m.inlineErr != nil {
		return m.inlineResult, m.inlineErr
	}
	if m.inlineResult != nil {
		return m.inlineResult, nil
	}
	return &gateway.InlineResult{Status: gateway.IntentSucceeded, ProcessorRef: "pi_" + attempt.CorrelationID}, nil
}

func (m *mockGateway) SubmitHosted(_ context.Context, attempt gateway.PaymentAttempt, urls gateway.ReturnURLs) (*gateway.HostedResult, error) {
	m.log.add("gateway.hosted")
	m.attempts = append(m.attempts, attempt)
	m.urls = append(m.urls, urls)
	if m.hostedErr != nil {
		return nil, m.hostedErr
	}
	if m.hostedResult != nil {
		return m.hostedResult, nil
	}
	return &gateway.HostedResult{SessionID: "cs_" + attempt.CorrelationID, RedirectURL: "https://pay.example.com/" + attempt.CorrelationID}, nil
}
