package cart

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_OneStorePerBuyer(t *testing.T) {
	m := NewManager(NewMemoryStorage(0), logger.Discard())
	ctx := context.Background()

	a := m.Get(ctx, "alice")
	assert.Same(t, a, m.Get(ctx, "alice"))
	assert.NotSame(t, a, m.Get(ctx, "bob"))

	a.AddItem(ctx, tee("M"), 1)
	assert.Empty(t, m.Get(ctx, "bob").Items())
}

func TestManager_ForgetReloadsFromStorage(t *testing.T) {
	storage := NewMemoryStorage(0)
	m := NewManager(storage, logger.Discard())
	ctx := context.Background()

	first := m.Get(ctx, "alice")
	first.AddItem(ctx, tee("M"), 2)
	m.Forget("alice")

	second := m.Get(ctx, "alice")
	assert.NotSame(t, first, second)
	assert.Equal(t, first.Items(), second.Items())

	_, err := storage.Get(ctx, "cart:alice")
	assert.NoError(t, err)
}

func TestManager_Clear(t *testing.T) {
	storage := NewMemoryStorage(0)
	m := NewManager(storage, logger.Discard())
	ctx := context.Background()

	m.Get(ctx, "alice").AddItem(ctx, tee("M"), 2)
	m.Clear(ctx, "alice")

	assert.Empty(t, m.Get(ctx, "alice").Items())
	m.Forget("alice")
	assert.Empty(t, m.Get(ctx, "alice").Items())
}

func TestManager_SeesWritesFromOtherInstance(t *testing.T) {
	storage := NewMemoryStorage(0)
	a := NewManager(storage, logger.Discard())
	b := NewManager(storage, logger.Discard())
	ctx := context.Background()

	b.Get(ctx, "alice").AddItem(ctx, tee("M"), 1)
	a.Get(ctx, "alice")
	a.Clear(ctx, "alice")

	b.Get(ctx, "alice").AddItem(ctx, domain.CartItem{ProductID: "mug", Name: "Mug", UnitPrice: 1200}, 1)

	items := b.Get(ctx, "alice").Items()
	require.Len(t, items, 1)
	assert.Equal(t, "mug", items[0].ProductID)

	items = a.Get(ctx, "alice").Items()
	require.Len(t, items, 1)
	assert.Equal(t, "mug", items[0].ProductID)
}

func TestManager_GetKeepsObserversAcrossReload(t *testing.T) {
	storage := NewMemoryStorage(0)
	a := NewManager(storage, logger.Discard())
	b := NewManager(storage, logger.Discard())
	ctx := context.Background()

	var seen []domain.CartSnapshot
	unsubscribe := a.Get(ctx, "alice").Subscribe(func(s domain.CartSnapshot) { seen = append(seen, s) })
	defer unsubscribe()

	b.Get(ctx, "alice").AddItem(ctx, tee("M"), 2)
	a.Get(ctx, "alice")
	a.Get(ctx, "alice")

	require.Len(t, seen, 1, "only a changed reload notifies")
	assert.Equal(t, 2, seen[0].ItemCount)
}

func TestManager_EvictIdle(t *testing.T) {
	m := NewManager(NewMemoryStorage(0), logger.Discard())
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Get(ctx, "alice").AddItem(ctx, tee("M"), 1)
	now = now.Add(20 * time.Minute)
	m.Get(ctx, "bob")

	assert.Equal(t, 1, m.EvictIdle(10*time.Minute))
	assert.Equal(t, 1, m.Len())

	assert.Len(t, m.Get(ctx, "alice").Items(), 1, "evicted cart reloads from storage")
}

func TestManager_EvictIdleKeepsUnpersistedCarts(t *testing.T) {
	m := NewManager(newFailingStorage(errStorageDisabled), logger.Discard())
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Get(ctx, "alice").AddItem(ctx, tee("M"), 1)
	now = now.Add(time.Hour)

	assert.Zero(t, m.EvictIdle(time.Minute))
	assert.Len(t, m.Get(ctx, "alice").Items(), 1)
}

func TestManager_RunEvictionStopsWithContext(t *testing.T) {
	m := NewManager(NewMemoryStorage(0), logger.Discard())
	m.Get(context.Background(), "alice")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunEviction(ctx, 5*time.Millisecond, time.Nanosecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction loop did not stop")
	}
}
