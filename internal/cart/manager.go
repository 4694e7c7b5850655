package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager hands out one Store per buyer, created on first use. A cached store
// is reloaded from storage on every Get, so carts stay in step across
// processes sharing the same storage.
type Manager struct {
	mu      sync.Mutex
	storage Storage
	log     *slog.Logger
	stores  map[string]*managedStore
	now     func() time.Time
}

type managedStore struct {
	store    *Store
	lastUsed time.Time
}

func NewManager(storage Storage, log *slog.Logger) *Manager {
	return &Manager{
		storage: storage,
		log:     log,
		stores:  make(map[string]*managedStore),
		now:     time.Now,
	}
}

func (m *Manager) Get(ctx context.Context, buyerID string) *Store {
	m.mu.Lock()
	if e, ok := m.stores[buyerID]; ok {
		e.lastUsed = m.now()
		m.mu.Unlock()
		e.store.Reload(ctx)
		return e.store
	}
	s := NewStore(ctx, storageKey(buyerID), m.storage, m.log.With("buyer_id", buyerID))
	m.stores[buyerID] = &managedStore{store: s, lastUsed: m.now()}
	m.mu.Unlock()
	return s
}

// Clear empties the buyer's cart, in process and in storage.
func (m *Manager) Clear(ctx context.Context, buyerID string) {
	m.Get(ctx, buyerID).Clear(ctx)
}

// Forget drops the in-process store for buyerID; the next Get reloads it.
func (m *Manager) Forget(buyerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, buyerID)
}

// Len reports how many stores are cached.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// EvictIdle drops stores not used for idle and returns how many went.
// Stores with local changes storage has not accepted are kept.
func (m *Manager) EvictIdle(idle time.Duration) int {
	cutoff := m.now().Add(-idle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, e := range m.stores {
		if e.lastUsed.After(cutoff) || e.store.pending() {
			continue
		}
		delete(m.stores, id)
		evicted++
	}
	return evicted
}

// RunEviction calls EvictIdle every interval until ctx is done.
func (m *Manager) RunEviction(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := m.EvictIdle(idle); n > 0 {
				m.log.DebugContext(ctx, "evicted idle carts", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}

func storageKey(buyerID string) string {
	return fmt.Sprintf("cart:%s", buyerID)
}
