package consumer

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

type statusCall struct {
	id     string
	status domain.Status
	ref    string
}

type mockLedger struct {
	mu      sync.Mutex
	calls   []statusCall
	applied bool
	err     error
}

func (m *mockLedger) UpdateStatus(_ context.Context, id string, status domain.Status, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, statusCall{id: id, status: status, ref: ref})
	return m.applied, m.err
}

type mockCarts struct {
	mu      sync.Mutex
	cleared []string
}

func (m *mockCarts) Clear(_ context.Context, buyerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, buyerID)
}
