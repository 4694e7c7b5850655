package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
)

type Ledger interface {
	Fetch(ctx context.Context, id string) (*domain.Record, error)
	ListByBuyer(ctx context.Context, buyerID string, f ledger.Filter) ([]*domain.Record, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, processorRef string) (bool, error)
}

type Canceller interface {
	CancelSubscription(ctx context.Context, req *billing.CancelSubscriptionRequest) (*billing.CancelSubscriptionResponse, error)
}

// InvalidStateError rejects a cancellation of a record that is not active.
type InvalidStateError struct {
	RecordID string
	Status   domain.Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("subscription %s is %s, only active subscriptions can be cancelled", e.RecordID, e.Status)
}

// CancellationError means the processor did not confirm the cancellation.
// The record is unchanged.
type CancellationError struct {
	RecordID string
	Err      error
}

func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancel subscription %s: %v", e.RecordID, e.Err)
}

func (e *CancellationError) Unwrap() error { return e.Err }

type Manager struct {
	ledger    Ledger
	canceller Canceller
	log       *slog.Logger
}

func NewManager(ledger Ledger, canceller Canceller, log *slog.Logger) *Manager {
	return &Manager{ledger: ledger, canceller: canceller, log: log}
}

// List returns the buyer's recurring donations, newest first.
func (m *Manager) List(ctx context.Context, buyerID string) ([]*domain.Record, error) {
	return m.ledger.ListByBuyer(ctx, buyerID, ledger.Filter{Kind: domain.KindDonation, RecurringOnly: true})
}

// Cancel stops an active recurring donation owned by buyerID and returns the
// stored record. Records of other buyers are reported as not found.
func (m *Manager) Cancel(ctx context.Context, buyerID, recordID string) (*domain.Record, error) {
	rec, err := m.ledger.Fetch(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.BuyerID != buyerID || rec.Kind != domain.KindDonation || !rec.Recurring {
		return nil, ledger.ErrNotFound
	}
	if rec.Status != domain.StatusActive {
		return nil, &InvalidStateError{RecordID: recordID, Status: rec.Status}
	}

	if _, err := m.canceller.CancelSubscription(ctx, &billing.CancelSubscriptionRequest{
		RecordID:     recordID,
		ProcessorRef: rec.ProcessorRef,
	}); err != nil {
		m.log.WarnContext(ctx, "subscription cancellation failed", "record_id", recordID, "error", err)
		return nil, &CancellationError{RecordID: recordID, Err: err}
	}

	applied, err := m.ledger.UpdateStatus(ctx, recordID, domain.StatusCancelled, "")
	if err != nil {
		// the processor already stopped billing; its notification will settle the record
		m.log.ErrorContext(ctx, "subscription cancelled but ledger update failed", "record_id", recordID, "error", err)
		return nil, err
	}
	if !applied {
		m.log.WarnContext(ctx, "subscription status changed during cancellation", "record_id", recordID)
	}

	return m.ledger.Fetch(ctx, recordID)
}
