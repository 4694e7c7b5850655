package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/ledger"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	for k, v := range env {
		t.Setenv(k, v)
	}
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func TestOpenLedgerRepository_Memory(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"LEDGER_BACKEND": "memory"})

	repo, closeRepo, err := openLedgerRepository(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	defer closeRepo()

	assert.IsType(t, &ledger.MemoryRepository{}, repo)
}

func TestOpenCartStorage_SQLite(t *testing.T) {
	cfg := loadConfig(t, map[string]string{
		"CART_BACKEND":      "sqlite",
		"SQLITE_PATH":       filepath.Join(t.TempDir(), "carts.db"),
		"SQLITE_MIGRATIONS": "../../internal/cart/migrations",
	})
	ctx := context.Background()

	storage, closeStorage, err := openCartStorage(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer closeStorage()

	require.NoError(t, storage.Set(ctx, "cart:u1", []byte(`{"items":[]}`)))
	got, err := storage.Get(ctx, "cart:u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[]}`, string(got))
}

func TestOpenCartStorage_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := loadConfig(t, map[string]string{
		"CART_BACKEND": "redis",
		"REDIS_ADDR":   mr.Addr(),
	})
	ctx := context.Background()

	storage, closeStorage, err := openCartStorage(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer closeStorage()

	require.NoError(t, storage.Set(ctx, "cart:u1", []byte("[]")))
	assert.True(t, mr.Exists("cart:u1"))
}

func TestOpenCartStorage_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	cfg := loadConfig(t, map[string]string{
		"CART_BACKEND": "redis",
		"REDIS_ADDR":   addr,
	})

	_, _, err := openCartStorage(context.Background(), cfg, logger.Discard())

	assert.Error(t, err)
}

func TestNewEventPublisher_Disabled(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"KAFKA_ENABLED": "false"})

	events, closeEvents := newEventPublisher(cfg, logger.Discard())
	defer closeEvents()

	assert.Nil(t, events)
}

func TestNewGateway_NotConfigured(t *testing.T) {
	cfg := loadConfig(t, map[string]string{"STRIPE_SECRET_KEY": ""})

	gw := newGateway(cfg, logger.Discard())

	_, err := gw.LookupIntent(context.Background(), "pi_1")
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)
}
