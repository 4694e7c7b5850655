package cart

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tee(variant string) domain.CartItem {
	return domain.CartItem{ProductID: "tee", Variant: variant, Name: "Tee", UnitPrice: 2000, PriceRef: "price_tee"}
}

func newTestStore(t *testing.T, storage Storage) *Store {
	t.Helper()
	return NewStore(context.Background(), "cart:test", storage, logger.Discard())
}

func TestAddItem_MergesSameKey(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(0))
	ctx := context.Background()

	s.AddItem(ctx, tee("M"), 1)
	snap := s.AddItem(ctx, tee("M"), 2)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, "tee-M", snap.Items[0].Key())
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.Equal(t, 3, snap.ItemCount)
	assert.Equal(t, int64(6000), snap.Subtotal)
}

func TestAddItem_DifferentVariantsAppend(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(0))
	ctx := context.Background()

	s.AddItem(ctx, tee("M"), 1)
	snap := s.AddItem(ctx, tee("L"), 0)

	require.Len(t, snap.Items, 2)
	assert.Equal(t, "tee-M", snap.Items[0].Key())
	assert.Equal(t, "tee-L", snap.Items[1].Key())
	assert.Equal(t, 1, snap.Items[1].Quantity)
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, q := range []int{0, -5} {
		t.Run(fmt.Sprint(q), func(t *testing.T) {
			s := newTestStore(t, NewMemoryStorage(0))
			ctx := context.Background()
			s.AddItem(ctx, tee("M"), 2)
			s.AddItem(ctx, tee("S"), 1)

			viaUpdate := s.UpdateQuantity(ctx, "tee-M", q)

			other := newTestStore(t, NewMemoryStorage(0))
			other.AddItem(ctx, tee("M"), 2)
			other.AddItem(ctx, tee("S"), 1)
			viaRemove := other.RemoveItem(ctx, "tee-M")

			assert.Equal(t, viaRemove.Items, viaUpdate.Items)
			require.Len(t, viaUpdate.Items, 1)
			assert.Equal(t, "tee-S", viaUpdate.Items[0].Key())
		})
	}
}

func TestUpdateQuantity_SetsValue(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(0))
	ctx := context.Background()
	s.AddItem(ctx, tee("M"), 2)

	snap := s.UpdateQuantity(ctx, "tee-M", 7)

	assert.Equal(t, 7, snap.Items[0].Quantity)
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(0))
	ctx := context.Background()
	s.AddItem(ctx, tee("M"), 1)

	snap := s.RemoveItem(ctx, "mug")

	assert.Len(t, snap.Items, 1)
}

func TestRandomSequences_KeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	variants := []string{"S", "M", "L", ""}
	ctx := context.Background()

	for run := 0; run < 50; run++ {
		s := newTestStore(t, NewMemoryStorage(0))
		for op := 0; op < 100; op++ {
			item := tee(variants[rng.Intn(len(variants))])
			switch rng.Intn(3) {
			case 0:
				s.AddItem(ctx, item, rng.Intn(5)-1)
			case 1:
				s.UpdateQuantity(ctx, item.Key(), rng.Intn(7)-3)
			case 2:
				s.RemoveItem(ctx, item.Key())
			}

			seen := map[string]bool{}
			for _, it := range s.Items() {
				require.False(t, seen[it.Key()], "duplicate key %s", it.Key())
				seen[it.Key()] = true
				require.GreaterOrEqual(t, it.Quantity, 1)
			}
		}
	}
}

func TestPersistThenReload_RoundTrips(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	s := newTestStore(t, storage)
	s.AddItem(ctx, tee("L"), 1)
	s.AddItem(ctx, tee("M"), 2)
	s.AddItem(ctx, domain.CartItem{ProductID: "mug", Name: "Mug", UnitPrice: 1200}, 4)
	s.ToggleVisibility()

	reloaded := newTestStore(t, storage)

	assert.Equal(t, s.Items(), reloaded.Items())
	assert.False(t, reloaded.Snapshot().Open, "visibility is not persisted")
}

func TestReload_CorruptDataStartsEmpty(t *testing.T) {
	storage := NewMemoryStorage(0)
	require.NoError(t, storage.Set(context.Background(), "cart:test", []byte("{not json")))

	s := newTestStore(t, storage)

	assert.Empty(t, s.Items())
}

func TestReload_DropsInvalidEntries(t *testing.T) {
	storage := NewMemoryStorage(0)
	raw := `[{"product_id":"tee","variant":"M","quantity":2},{"product_id":"tee","variant":"M","quantity":1},{"product_id":"mug","quantity":0}]`
	require.NoError(t, storage.Set(context.Background(), "cart:test", []byte(raw)))

	s := newTestStore(t, storage)

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
}

func TestReload_PicksUpStorageChanges(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	s := newTestStore(t, storage)
	s.AddItem(ctx, tee("M"), 1)
	s.ToggleVisibility()

	other := newTestStore(t, storage)
	other.AddItem(ctx, tee("M"), 2)

	snap := s.Reload(ctx)

	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
	assert.True(t, snap.Open, "drawer flag survives reload")
}

func TestReload_KeepsUnpersistedChanges(t *testing.T) {
	storage := newFailingStorage(errStorageDisabled)
	storage.values["cart:test"] = []byte(`[{"product_id":"mug","quantity":1}]`)
	ctx := context.Background()
	s := newTestStore(t, storage)

	s.AddItem(ctx, tee("M"), 1)
	snap := s.Reload(ctx)

	assert.Len(t, snap.Items, 2)
}

func TestReload_ReadFailureKeepsMemory(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	s := NewStore(ctx, "cart:test", storage, logger.Discard())
	s.AddItem(ctx, tee("M"), 1)

	s.storage = newFailingStorage(errStorageDisabled)
	snap := s.Reload(ctx)

	assert.Len(t, snap.Items, 1)
}

func TestPersistFailure_IsSwallowed(t *testing.T) {
	storage := newFailingStorage(errStorageDisabled)
	s := newTestStore(t, storage)
	ctx := context.Background()

	snap := s.AddItem(ctx, tee("M"), 2)
	s.Clear(ctx)
	s.AddItem(ctx, tee("S"), 1)

	assert.Len(t, snap.Items, 1)
	assert.Len(t, s.Items(), 1)
	assert.Equal(t, 2, storage.sets)
}

func TestPersistFailure_QuotaExceeded(t *testing.T) {
	storage := NewMemoryStorage(10)
	s := newTestStore(t, storage)

	snap := s.AddItem(context.Background(), tee("M"), 1)

	assert.Len(t, snap.Items, 1)
	_, err := storage.Get(context.Background(), "cart:test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClear_RemovesPersistedState(t *testing.T) {
	storage := NewMemoryStorage(0)
	ctx := context.Background()
	s := newTestStore(t, storage)
	s.AddItem(ctx, tee("M"), 1)

	snap := s.Clear(ctx)

	assert.Empty(t, snap.Items)
	_, err := storage.Get(ctx, "cart:test")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleVisibility_DoesNotPersist(t *testing.T) {
	storage := newFailingStorage(nil)
	s := newTestStore(t, storage)

	assert.True(t, s.ToggleVisibility().Open)
	assert.False(t, s.ToggleVisibility().Open)
	assert.Equal(t, 0, storage.sets)
}

func TestSubscribe_NotifiesUntilUnsubscribed(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(0))
	ctx := context.Background()

	var got []domain.CartSnapshot
	unsubscribe := s.Subscribe(func(snap domain.CartSnapshot) {
		got = append(got, snap)
	})

	s.AddItem(ctx, tee("M"), 1)
	s.ToggleVisibility()
	unsubscribe()
	s.AddItem(ctx, tee("M"), 1)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ItemCount)
	assert.True(t, got[1].Open)
}

func TestConcurrentMutations(t *testing.T) {
	s := newTestStore(t, NewMemoryStorage(0))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddItem(ctx, tee("M"), 1)
		}()
	}
	wg.Wait()

	items := s.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 20, items[0].Quantity)
}
