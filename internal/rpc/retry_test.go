package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/goran-ethernal/ChainSyncer/internal/common"
	"github.com/goran-ethernal/ChainSyncer/pkg/config"
	"github.com/stretchr/testify/require"
)

func testRetryConfig(attempts int) *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    common.NewDuration(time.Millisecond),
		MaxBackoff:        common.NewDuration(10 * time.Millisecond),
		BackoffMultiplier: 2.0,
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"connection refused", syscall.ECONNREFUSED, true},
		{"connection reset", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"net timeout", &net.DNSError{IsTimeout: true}, true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"bad gateway", errors.New("502 Bad Gateway"), true},
		{"deadline", errors.New("context deadline exceeded"), true},
		{"invalid params", errors.New("invalid argument 0: hex string without 0x prefix"), false},
		{"method not found", errors.New("the method eth_foo does not exist"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.retryable, retryableError(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := &config.RetryConfig{
		InitialBackoff:    common.NewDuration(time.Second),
		MaxBackoff:        common.NewDuration(4 * time.Second),
		BackoffMultiplier: 2.0,
	}

	require.Equal(t, time.Duration(0), calculateBackoff(1, cfg))

	// With +-25% jitter the second attempt stays within [0.75s, 1.25s].
	b := calculateBackoff(2, cfg)
	require.GreaterOrEqual(t, b, 750*time.Millisecond)
	require.LessOrEqual(t, b, 1250*time.Millisecond)

	// Later attempts are capped at MaxBackoff plus jitter.
	b = calculateBackoff(10, cfg)
	require.LessOrEqual(t, b, 5*time.Second)
}

func TestRetryWithBackoffSucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), testRetryConfig(5), "test", func() error {
		calls++
		if calls < 3 {
			return syscall.ECONNREFUSED
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetryWithBackoffNonRetryable(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), testRetryConfig(5), "test", func() error {
		calls++
		return errors.New("invalid argument")
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), testRetryConfig(3), "test", func() error {
		calls++
		return syscall.ECONNREFUSED
	})

	require.Error(t, err)
	require.ErrorIs(t, err, syscall.ECONNREFUSED)
	require.Equal(t, 3, calls)
}

func TestRetryWithBackoffNilConfigRunsOnce(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), nil, "test", func() error {
		calls++
		return syscall.ECONNREFUSED
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestRetryWithBackoffHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryWithBackoff(ctx, testRetryConfig(5), "test", func() error {
		calls++
		return syscall.ECONNREFUSED
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, calls)
}
