package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

// Observer receives the cart state after every mutation.
type Observer func(domain.CartSnapshot)

// Store holds one buyer cart. Memory is authoritative: every mutation is
// written through to storage, and storage failures are logged and dropped.
type Store struct {
	mu      sync.Mutex
	key     string
	storage Storage
	log     *slog.Logger

	items []domain.CartItem
	open  bool
	// dirty is set while memory holds changes storage has not accepted.
	dirty bool

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewStore loads persisted items under key. Missing or unreadable data
// yields an empty cart.
func NewStore(ctx context.Context, key string, storage Storage, log *slog.Logger) *Store {
	s := &Store{
		key:       key,
		storage:   storage,
		log:       log,
		observers: make(map[int]Observer),
	}
	items, err := s.load(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "cart load failed, starting empty", "key", s.key, "error", err)
	}
	s.items = items
	return s
}

// load reads the persisted items. Missing or corrupt data yields an empty
// cart; only a failed read is returned as an error.
func (s *Store) load(ctx context.Context) ([]domain.CartItem, error) {
	data, err := s.storage.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var items []domain.CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.log.WarnContext(ctx, "cart data corrupt, starting empty", "key", s.key, "error", err)
		return nil, nil
	}

	// drop anything that would break the one-entry-per-key rule
	clean := make([]domain.CartItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.Quantity < 1 || seen[it.Key()] {
			continue
		}
		seen[it.Key()] = true
		clean = append(clean, it)
	}
	return clean, nil
}

// Reload replaces the items with what storage holds, so writes made by
// another process become visible. The drawer flag and observers are kept.
// Observers are notified only when the items changed. Unpersisted local
// changes and unreadable storage leave memory as it is.
func (s *Store) Reload(ctx context.Context) domain.CartSnapshot {
	s.mu.Lock()
	if s.dirty {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	items, err := s.load(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "cart reload failed, keeping memory", "key", s.key, "error", err)
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	changed := !slices.Equal(s.items, items)
	s.items = items
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if changed {
		s.notify(snap)
	}
	return snap
}

// AddItem merges item into the cart. An existing line with the same key gets
// its quantity increased. Quantities below one count as one.
func (s *Store) AddItem(ctx context.Context, item domain.CartItem, quantity int) domain.CartSnapshot {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	idx := s.indexOf(item.Key())
	if idx >= 0 {
		s.items[idx].Quantity += quantity
	} else {
		item.Quantity = quantity
		s.items = append(s.items, item)
	}
	snap := s.commit(ctx)
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// UpdateQuantity sets the quantity for key. Zero or negative removes the line.
func (s *Store) UpdateQuantity(ctx context.Context, key string, quantity int) domain.CartSnapshot {
	if quantity <= 0 {
		return s.RemoveItem(ctx, key)
	}

	s.mu.Lock()
	if idx := s.indexOf(key); idx >= 0 {
		s.items[idx].Quantity = quantity
	}
	snap := s.commit(ctx)
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Store) RemoveItem(ctx context.Context, key string) domain.CartSnapshot {
	s.mu.Lock()
	if idx := s.indexOf(key); idx >= 0 {
		s.items = append(s.items[:idx], s.items[idx+1:]...)
	}
	snap := s.commit(ctx)
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// Clear empties the cart and removes its persisted state.
func (s *Store) Clear(ctx context.Context) domain.CartSnapshot {
	s.mu.Lock()
	s.items = nil
	err := s.storage.Remove(ctx, s.key)
	if err != nil {
		s.log.WarnContext(ctx, "cart remove failed", "key", s.key, "error", err)
	}
	s.dirty = err != nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

// ToggleVisibility flips the drawer flag. It is never persisted.
func (s *Store) ToggleVisibility() domain.CartSnapshot {
	s.mu.Lock()
	s.open = !s.open
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Store) pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyItems(s.items)
}

func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for change notifications and returns a func that
// removes it.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(snap domain.CartSnapshot) {
	s.obsMu.Lock()
	fns := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// commit persists the current items and returns the new snapshot.
// Must be called with s.mu held.
func (s *Store) commit(ctx context.Context) domain.CartSnapshot {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.log.ErrorContext(ctx, "cart marshal failed", "key", s.key, "error", err)
		s.dirty = true
		return s.snapshotLocked()
	}
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.log.WarnContext(ctx, "cart persist failed", "key", s.key, "error", err)
		s.dirty = true
		return s.snapshotLocked()
	}
	s.dirty = false
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.CartSnapshot {
	snap := domain.CartSnapshot{
		Items: copyItems(s.items),
		Open:  s.open,
	}
	for _, it := range s.items {
		snap.ItemCount += it.Quantity
		snap.Subtotal += it.UnitPrice * int64(it.Quantity)
	}
	return snap
}

func (s *Store) indexOf(key string) int {
	for i, it := range s.items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func copyItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
