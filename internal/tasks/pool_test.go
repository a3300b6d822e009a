package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/ytpub/internal/shared"
)

func TestPool(t *testing.T) {
	t.Run("runs every submitted job before shutdown returns", func(t *testing.T) {
		pool := NewPool(PoolOpts{Size: 2, Queue: 8}, nil)

		var ran atomic.Int64
		for range 5 {
			require.NoError(t, pool.Submit(func(context.Context) { ran.Add(1) }))
		}

		require.NoError(t, pool.Shutdown(context.Background()))
		assert.Equal(t, int64(5), ran.Load())
	})

	t.Run("rejects without blocking when the queue is full", func(t *testing.T) {
		pool := NewPool(PoolOpts{Size: 1, Queue: 1}, nil)

		started := make(chan struct{})
		release := make(chan struct{})
		require.NoError(t, pool.Submit(func(context.Context) {
			close(started)
			<-release
		}))
		<-started

		require.NoError(t, pool.Submit(func(context.Context) {}))

		err := pool.Submit(func(context.Context) {})
		assert.ErrorIs(t, err, shared.ErrQueueFull)

		close(release)
		require.NoError(t, pool.Shutdown(context.Background()))
	})

	t.Run("rejects after shutdown", func(t *testing.T) {
		pool := NewPool(PoolOpts{}, nil)
		require.NoError(t, pool.Shutdown(context.Background()))

		assert.ErrorIs(t, pool.Submit(func(context.Context) {}), shared.ErrPublisherShutdown)
		assert.NoError(t, pool.Shutdown(context.Background()), "second shutdown should be a no-op")
	})

	t.Run("keeps working after a job panics", func(t *testing.T) {
		pool := NewPool(PoolOpts{Size: 1}, nil)

		var ran atomic.Bool
		require.NoError(t, pool.Submit(func(context.Context) { panic("boom") }))
		require.NoError(t, pool.Submit(func(context.Context) { ran.Store(true) }))

		require.NoError(t, pool.Shutdown(context.Background()))
		assert.True(t, ran.Load())
	})

	t.Run("cancels running jobs when the shutdown deadline passes", func(t *testing.T) {
		pool := NewPool(PoolOpts{Size: 1}, nil)

		started := make(chan struct{})
		var cancelled atomic.Bool
		require.NoError(t, pool.Submit(func(ctx context.Context) {
			close(started)
			<-ctx.Done()
			cancelled.Store(true)
		}))
		<-started

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		err := pool.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.True(t, cancelled.Load())
	})

	t.Run("paces job starts", func(t *testing.T) {
		pool := NewPool(PoolOpts{Size: 1, RatePerMinute: 600}, nil)

		var (
			mu     sync.Mutex
			starts []time.Time
		)
		for range 2 {
			require.NoError(t, pool.Submit(func(context.Context) {
				mu.Lock()
				starts = append(starts, time.Now())
				mu.Unlock()
			}))
		}
		require.NoError(t, pool.Shutdown(context.Background()))

		require.Len(t, starts, 2)
		assert.GreaterOrEqual(t, starts[1].Sub(starts[0]), 80*time.Millisecond)
	})
}
