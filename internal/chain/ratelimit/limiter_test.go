package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(10.0, 5, "sepolia")

	require.NotNil(t, l)
	assert.Equal(t, "sepolia", l.network)
	assert.InDelta(t, 10.0, float64(l.bucket.Limit()), 0.001)
	assert.Equal(t, 5, l.bucket.Burst())
}

func TestNewLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(0, 0, "simulated")
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestLimiter_AllowWithinBurst(t *testing.T) {
	const burst = 5
	l := NewLimiter(100, burst, "sepolia")
	ctx := context.Background()

	for i := 0; i < burst; i++ {
		start := time.Now()
		require.NoError(t, l.Wait(ctx), "request %d should not error", i)
		assert.Less(t, time.Since(start), 50*time.Millisecond)
	}
}

func TestLimiter_WaitWhenExhausted(t *testing.T) {
	l := NewLimiter(10, 1, "sepolia")
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx))

	start := time.Now()
	require.NoError(t, l.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiter_ContextCancellation(t *testing.T) {
	l := NewLimiter(1, 1, "sepolia")
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestClassifyRPCError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{errors.New("execution reverted: Unauthorized"), "reverted"},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("http status 429: too many requests"), "rate_limited"},
		{errors.New("http status 503: unavailable"), "server_error"},
		{errors.New("dial tcp: connection refused"), "network_error"},
		{errors.New("invalid params"), "client_error"},
		{fmt.Errorf("eth_call: %w", context.DeadlineExceeded), "timeout"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyRPCError(tc.err))
	}
}
