package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

var errStoreDown = errors.New("store down")

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (m *mockPublisher) Publish(_ context.Context, ev domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockPublisher) published() []domain.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

// brokenRepository fails every call.
type brokenRepository struct{}

func (brokenRepository) Insert(context.Context, *domain.Record) error { return errStoreDown }
func (brokenRepository) Get(context.Context, string) (*domain.Record, error) {
	return nil, errStoreDown
}
func (brokenRepository) CompareAndSetStatus(context.Context, string, StatusChange) (bool, error) {
	return false, errStoreDown
}
func (brokenRepository) SetProcessorRef(context.Context, string, string, time.Time) (bool, error) {
	return false, errStoreDown
}
func (brokenRepository) ListByBuyer(context.Context, string, Filter) ([]*domain.Record, error) {
	return nil, errStoreDown
}
func (brokenRepository) ListPending(context.Context, PendingPage) ([]*domain.Record, error) {
	return nil, errStoreDown
}

// racingRepository lets another writer win between Get and CompareAndSetStatus.
type racingRepository struct {
	*MemoryRepository
	winner domain.Status
}

func (r *racingRepository) CompareAndSetStatus(ctx context.Context, id string, change StatusChange) (bool, error) {
	_, _ = r.MemoryRepository.CompareAndSetStatus(ctx, id, StatusChange{From: change.From, To: r.winner, At: change.At})
	return r.MemoryRepository.CompareAndSetStatus(ctx, id, change)
}
