package ledger

import (
	"context"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

type Filter struct {
	Kind          domain.Kind
	RecurringOnly bool
	Status        domain.Status
}

func (f Filter) matches(r *domain.Record) bool {
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.RecurringOnly && !r.Recurring {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

// StatusChange is one guarded status write.
type StatusChange struct {
	From         domain.Status
	To           domain.Status
	ProcessorRef string
	At           time.Time
}

// PendingPage selects pending records created before OlderThan in
// (created_at, id) order, starting after the position AfterCreatedAt/AfterID.
// The zero position starts from the oldest record.
type PendingPage struct {
	OlderThan      time.Time
	AfterCreatedAt time.Time
	AfterID        string
	Limit          int
}

func (p PendingPage) includes(r *domain.Record) bool {
	if r.Status != domain.StatusPending || !r.CreatedAt.Before(p.OlderThan) {
		return false
	}
	if r.CreatedAt.Equal(p.AfterCreatedAt) {
		return r.ID > p.AfterID
	}
	return r.CreatedAt.After(p.AfterCreatedAt)
}

func pendingOrder(a, b *domain.Record) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Repository persists ledger records. Status writes are compare-and-set on
// the current status and report whether they were applied.
type Repository interface {
	Insert(ctx context.Context, rec *domain.Record) error
	Get(ctx context.Context, id string) (*domain.Record, error)
	CompareAndSetStatus(ctx context.Context, id string, change StatusChange) (bool, error)
	SetProcessorRef(ctx context.Context, id, ref string, at time.Time) (bool, error)
	ListByBuyer(ctx context.Context, buyerID string, f Filter) ([]*domain.Record, error)
	ListPending(ctx context.Context, page PendingPage) ([]*domain.Record, error)
}
