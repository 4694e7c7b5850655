package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithSignals_CancelledBySIGTERM(t *testing.T) {
	ctx, stop := WithSignals(context.Background())
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}

func TestWithSignals_StopCancels(t *testing.T) {
	ctx, stop := WithSignals(context.Background())
	stop()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestWithSignals_FollowsParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := WithSignals(parent)
	defer stop()

	cancel()

	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
