package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/storefront/internal/billing"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/ledger"
)

var errUnreachable = errors.New("billing unreachable")

type mockConfirmer struct {
	mu       sync.Mutex
	statuses map[string]domain.Status
	err      error
	release  chan struct{}
	calls    atomic.Int32
	requests []*billing.ConfirmRequest
}

func newMockConfirmer() *mockConfirmer {
	return &mockConfirmer{statuses: make(map[string]domain.Status)}
}

func (m *mockConfirmer) Confirm(ctx context.Context, req *billing.ConfirmRequest) (*billing.ConfirmResponse, error) {
	m.calls.Add(1)
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	st, ok := m.statuses[req.RecordID]
	if !ok {
		st = domain.StatusPending
	}
	return &billing.ConfirmResponse{RecordID: req.RecordID, Status: st, ProcessorRef: "pi_" + req.RecordID}, nil
}

func (m *mockConfirmer) lastRequest() *billing.ConfirmRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[len(m.requests)-1]
}

// countingRepository counts every write that reaches storage.
type countingRepository struct {
	*ledger.MemoryRepository
	writes atomic.Int32
}

func (c *countingRepository) CompareAndSetStatus(ctx context.Context, id string, change ledger.StatusChange) (bool, error) {
	c.writes.Add(1)
	return c.MemoryRepository.CompareAndSetStatus(ctx, id, change)
}

func (c *countingRepository) SetProcessorRef(ctx context.Context, id, ref string, at time.Time) (bool, error) {
	c.writes.Add(1)
	return c.MemoryRepository.SetProcessorRef(ctx, id, ref, at)
}
