package client

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPollerFetchesImmediatelyAndStopsOnCancel(t *testing.T) {
	var calls atomic.Int64
	poller := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestPollerCoalescesTicksUnderSlowFetch(t *testing.T) {
	var calls atomic.Int64
	interval := 5 * time.Millisecond
	poller := NewPoller(interval, func(ctx context.Context) error {
		calls.Add(1)
		// hold the loop for several intervals; queued ticks must not fan out
		time.Sleep(4 * interval)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*interval)
	defer cancel()
	err := poller.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// one immediate fetch plus at most one per 4-interval cycle
	require.LessOrEqual(t, calls.Load(), int64(6))
	require.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestPollerRetriesAfterFetchError(t *testing.T) {
	var calls atomic.Int64
	poller := NewPoller(time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("transient")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestPollerDefaultsInterval(t *testing.T) {
	poller := NewPoller(0, func(ctx context.Context) error { return nil })
	require.Equal(t, 10*time.Second, poller.interval)
}
