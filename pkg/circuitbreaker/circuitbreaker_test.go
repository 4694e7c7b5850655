package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/fjod/storefront/pkg/logger"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func TestBreaker_TripsAfterFailures(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.Timeout = time.Hour
	cb := New[int](cfg, logger.Discard())

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(func() (int, error) { return 0, errBoom })
		assert.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	_, err := cb.Execute(func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreaker_IsSuccessfulKeepsClosed(t *testing.T) {
	cfg := DefaultConfig("test")
	cfg.IsSuccessful = func(err error) bool { return err == nil || errors.Is(err, errBoom) }
	cb := New[int](cfg, logger.Discard())

	for i := 0; i < 10; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, errBoom })
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}
