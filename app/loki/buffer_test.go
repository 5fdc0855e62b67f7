// Copyright © 2025 NetherGamesMC. Licensed under the terms of a Business Source License 1.1

package loki_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nethergamesmc/lokilogger/app/loki"
)

func TestLineBufferOrder(t *testing.T) {
	buf := loki.NewLineBuffer(0)

	for i := range 5 {
		require.True(t, buf.Push(loki.Entry{Line: fmt.Sprint(i), Timestamp: int64(i)}))
	}
	require.Equal(t, 5, buf.Len())

	entries := buf.DrainAll()
	require.Len(t, entries, 5)
	for i, entry := range entries {
		require.Equal(t, fmt.Sprint(i), entry.Line)
	}

	require.Empty(t, buf.DrainAll())
	require.Zero(t, buf.Len())
}

func TestLineBufferBounded(t *testing.T) {
	buf := loki.NewLineBuffer(2)

	require.True(t, buf.Push(loki.Entry{Line: "a"}))
	require.True(t, buf.Push(loki.Entry{Line: "b"}))
	require.False(t, buf.Push(loki.Entry{Line: "c"}))

	require.Len(t, buf.DrainAll(), 2)
	require.True(t, buf.Push(loki.Entry{Line: "d"}))
}

func TestLineBufferConcurrentProducers(t *testing.T) {
	const (
		producers = 8
		perProd   = 500
	)

	buf := loki.NewLineBuffer(0)

	var eg errgroup.Group
	for p := range producers {
		eg.Go(func() error {
			for i := range perProd {
				buf.Push(loki.Entry{Line: fmt.Sprintf("%d:%d", p, i)})
			}

			return nil
		})
	}
	require.NoError(t, eg.Wait())

	entries := buf.DrainAll()
	require.Len(t, entries, producers*perProd)

	// Order per producer is preserved and nothing is duplicated.
	next := make(map[int]int)
	for _, entry := range entries {
		var p, i int
		_, err := fmt.Sscanf(entry.Line, "%d:%d", &p, &i)
		require.NoError(t, err)
		require.Equal(t, next[p], i)
		next[p]++
	}
}

func TestWaitForSignal(t *testing.T) {
	clock := clockwork.NewFakeClock()
	stop := make(chan struct{})

	t.Run("pending push", func(t *testing.T) {
		buf := loki.NewLineBuffer(0)
		buf.Push(loki.Entry{Line: "a"})
		buf.Push(loki.Entry{Line: "b"})

		require.Equal(t, loki.WakeSignal, buf.WaitForSignal(clock, time.Second, stop))
	})

	t.Run("timeout", func(t *testing.T) {
		buf := loki.NewLineBuffer(0)

		// Signals are coalesced, so a drained buffer doesn't wake twice.
		buf.Push(loki.Entry{Line: "a"})
		require.Equal(t, loki.WakeSignal, buf.WaitForSignal(clock, time.Second, stop))

		resp := make(chan loki.WakeReason, 1)
		go func() {
			resp <- buf.WaitForSignal(clock, time.Second, stop)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))

		clock.Advance(time.Second)
		require.Equal(t, loki.WakeTimeout, <-resp)
	})

	t.Run("drained push", func(t *testing.T) {
		buf := loki.NewLineBuffer(0)

		// Draining consumes the signal of the drained entries.
		buf.Push(loki.Entry{Line: "a"})
		require.Len(t, buf.DrainAll(), 1)

		resp := make(chan loki.WakeReason, 1)
		go func() {
			resp <- buf.WaitForSignal(clock, time.Second, stop)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))

		clock.Advance(time.Second)
		require.Equal(t, loki.WakeTimeout, <-resp)
	})

	t.Run("push while waiting", func(t *testing.T) {
		buf := loki.NewLineBuffer(0)

		resp := make(chan loki.WakeReason, 1)
		go func() {
			resp <- buf.WaitForSignal(clock, time.Hour, stop)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))

		buf.Push(loki.Entry{Line: "a"})
		require.Equal(t, loki.WakeSignal, <-resp)
	})

	t.Run("stop", func(t *testing.T) {
		buf := loki.NewLineBuffer(0)
		stopped := make(chan struct{})
		close(stopped)

		require.Equal(t, loki.WakeStop, buf.WaitForSignal(clock, time.Hour, stopped))
	})
}
