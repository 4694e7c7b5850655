package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
)

// EventPublisher receives every applied status transition.
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

type Ledger struct {
	repo   Repository
	events EventPublisher
	log    *slog.Logger
	now    func() time.Time
}

// New builds a ledger over repo. events may be nil.
func New(repo Repository, events EventPublisher, log *slog.Logger) *Ledger {
	return &Ledger{
		repo:   repo,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores rec as a new pending record and returns its id.
func (l *Ledger) Create(ctx context.Context, rec domain.Record) (string, error) {
	if err := validateRecord(&rec); err != nil {
		return "", err
	}

	now := l.now()
	rec.ID = uuid.NewString()
	rec.Status = domain.StatusPending
	rec.ProcessorRef = ""
	rec.CancelledAt = nil
	rec.CreatedAt = now
	rec.UpdatedAt = now

	if err := l.repo.Insert(ctx, &rec); err != nil {
		return "", &PersistenceError{Op: "create", Err: err}
	}

	l.log.InfoContext(ctx, "ledger record created",
		"record_id", rec.ID, "kind", rec.Kind, "amount", rec.Amount, "method", rec.PaymentMethod)
	return rec.ID, nil
}

// UpdateStatus moves a record to status. Moves the state machine does not
// allow, and moves that lose a race with another writer, are logged and
// reported as not applied.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, status domain.Status, processorRef string) (bool, error) {
	rec, err := l.Fetch(ctx, id)
	if err != nil {
		return false, err
	}

	if !rec.Status.CanTransitionTo(status, rec.Recurring) {
		l.log.WarnContext(ctx, "ledger transition rejected",
			"record_id", id, "from", rec.Status, "to", status, "recurring", rec.Recurring)
		return false, nil
	}

	change := StatusChange{
		From:         rec.Status,
		To:           status,
		ProcessorRef: processorRef,
		At:           l.now(),
	}
	applied, err := l.repo.CompareAndSetStatus(ctx, id, change)
	if err != nil {
		return false, &PersistenceError{Op: "update status", Err: err}
	}
	if !applied {
		l.log.WarnContext(ctx, "ledger transition lost to concurrent writer",
			"record_id", id, "from", rec.Status, "to", status)
		return false, nil
	}

	l.log.InfoContext(ctx, "ledger status updated", "record_id", id, "from", rec.Status, "to", status)
	l.publish(ctx, rec, change)
	return true, nil
}

// AttachProcessorReference records the processor session or intent id while
// the record is still pending.
func (l *Ledger) AttachProcessorReference(ctx context.Context, id, ref string) error {
	if ref == "" {
		return nil
	}
	ok, err := l.repo.SetProcessorRef(ctx, id, ref, l.now())
	if err != nil {
		return &PersistenceError{Op: "attach reference", Err: err}
	}
	if !ok {
		l.log.WarnContext(ctx, "processor reference not attached, record not pending", "record_id", id)
	}
	return nil
}

func (l *Ledger) Fetch(ctx context.Context, id string) (*domain.Record, error) {
	rec, err := l.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &PersistenceError{Op: "fetch", Err: err}
	}
	return rec, nil
}

// ListByBuyer returns the buyer's records matching f, newest first.
func (l *Ledger) ListByBuyer(ctx context.Context, buyerID string, f Filter) ([]*domain.Record, error) {
	recs, err := l.repo.ListByBuyer(ctx, buyerID, f)
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	return recs, nil
}

// ListPending returns one page of pending records, oldest first.
func (l *Ledger) ListPending(ctx context.Context, page PendingPage) ([]*domain.Record, error) {
	recs, err := l.repo.ListPending(ctx, page)
	if err != nil {
		return nil, &PersistenceError{Op: "list pending", Err: err}
	}
	return recs, nil
}

func (l *Ledger) publish(ctx context.Context, rec *domain.Record, change StatusChange) {
	if l.events == nil {
		return
	}
	ref := change.ProcessorRef
	if ref == "" {
		ref = rec.ProcessorRef
	}
	ev := domain.Event{
		ID:           uuid.NewString(),
		RecordID:     rec.ID,
		Kind:         rec.Kind,
		BuyerID:      rec.BuyerID,
		From:         change.From,
		To:           change.To,
		ProcessorRef: ref,
		OccurredAt:   change.At,
	}
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.WarnContext(ctx, "ledger event publish failed", "record_id", rec.ID, "error", err)
	}
}

func validateRecord(rec *domain.Record) error {
	switch {
	case rec.Kind != domain.KindOrder && rec.Kind != domain.KindDonation:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecord, rec.Kind)
	case rec.BuyerID == "":
		return fmt.Errorf("%w: missing buyer", ErrInvalidRecord)
	case rec.Currency == "":
		return fmt.Errorf("%w: missing currency", ErrInvalidRecord)
	case rec.PaymentMethod != domain.PaymentMethodInlineCard && rec.PaymentMethod != domain.PaymentMethodHostedRedirect:
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidRecord, rec.PaymentMethod)
	}

	if rec.Kind == domain.KindOrder {
		if len(rec.Items) == 0 {
			return fmt.Errorf("%w: order without items", ErrInvalidRecord)
		}
		if rec.Recurring {
			return fmt.Errorf("%w: orders cannot recur", ErrInvalidRecord)
		}
		rec.Amount = domain.ItemsTotal(rec.Items)
	}
	if rec.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRecord)
	}
	if rec.Recurring && rec.Interval != domain.IntervalMonth && rec.Interval != domain.IntervalYear {
		return fmt.Errorf("%w: recurring record needs month or year interval", ErrInvalidRecord)
	}
	if !rec.Recurring {
		rec.Interval = ""
	}
	return nil
}
