package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/domain"
)

// MemoryRepository keeps records in process.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]*domain.Record)}
}

func (m *MemoryRepository) Insert(_ context.Context, rec *domain.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ID]; ok {
		return ErrDuplicateRecord
	}
	m.records[rec.ID] = cloneRecord(rec)
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id string) (*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *MemoryRepository) CompareAndSetStatus(_ context.Context, id string, change StatusChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Status != change.From {
		return false, nil
	}

	rec.Status = change.To
	rec.UpdatedAt = change.At
	if change.ProcessorRef != "" {
		rec.ProcessorRef = change.ProcessorRef
	}
	if change.To == domain.StatusCancelled {
		at := change.At
		rec.CancelledAt = &at
	}
	return true, nil
}

func (m *MemoryRepository) SetProcessorRef(_ context.Context, id, ref string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Status != domain.StatusPending {
		return false, nil
	}
	rec.ProcessorRef = ref
	rec.UpdatedAt = at
	return true, nil
}

func (m *MemoryRepository) ListByBuyer(_ context.Context, buyerID string, f Filter) ([]*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Record, 0)
	for _, rec := range m.records {
		if rec.BuyerID == buyerID && f.matches(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) ListPending(_ context.Context, page PendingPage) ([]*domain.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Record, 0)
	for _, rec := range m.records {
		if page.includes(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return pendingOrder(out[i], out[j])
	})
	if page.Limit > 0 && len(out) > page.Limit {
		out = out[:page.Limit]
	}
	return out, nil
}

func cloneRecord(rec *domain.Record) *domain.Record {
	c := *rec
	if rec.Items != nil {
		c.Items = make([]domain.LineItem, len(rec.Items))
		copy(c.Items, rec.Items)
	}
	if rec.Shipping != nil {
		s := *rec.Shipping
		c.Shipping = &s
	}
	if rec.CancelledAt != nil {
		t := *rec.CancelledAt
		c.CancelledAt = &t
	}
	return &c
}
