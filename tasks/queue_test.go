package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, opts ...Option) *Queue {
	t.Helper()
	opts = append([]Option{WithRetry(3, time.Millisecond)}, opts...)
	q, err := NewQueue(opts...)
	require.NoError(t, err)
	t.Cleanup(q.Release)
	return q
}

func TestNewQueue_InvalidRetry(t *testing.T) {
	_, err := NewQueue(WithRetry(0, time.Millisecond))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestQueue_RunsTask(t *testing.T) {
	q := newTestQueue(t)

	var ran atomic.Bool
	require.NoError(t, q.Submit("poll:1", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))
	q.Wait()

	assert.True(t, ran.Load())
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_DeduplicatesPendingKey(t *testing.T) {
	q := newTestQueue(t)

	release := make(chan struct{})
	var runs atomic.Int32
	task := func(ctx context.Context) error {
		runs.Add(1)
		<-release
		return nil
	}

	require.NoError(t, q.Submit("poll:1", task))
	assert.ErrorIs(t, q.Submit("poll:1", task), ErrDuplicateTask)
	require.NoError(t, q.Submit("poll:2", task), "other keys are independent")
	assert.Equal(t, 2, q.Pending())

	close(release)
	q.Wait()
	assert.Equal(t, int32(2), runs.Load())

	// Once finished the key can be submitted again.
	require.NoError(t, q.Submit("poll:1", func(ctx context.Context) error { return nil }))
	q.Wait()
}

func TestQueue_RetriesFailedTask(t *testing.T) {
	q := newTestQueue(t)

	var attempts atomic.Int32
	require.NoError(t, q.Submit("flaky", func(ctx context.Context) error {
		if attempts.Add(1) < 3 {
			return errors.New("upstream unavailable")
		}
		return nil
	}))
	q.Wait()

	assert.Equal(t, int32(3), attempts.Load())
}

func TestQueue_GivesUpAfterMaxAttempts(t *testing.T) {
	q := newTestQueue(t)

	var attempts atomic.Int32
	require.NoError(t, q.Submit("broken", func(ctx context.Context) error {
		attempts.Add(1)
		return errors.New("always fails")
	}))
	q.Wait()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, 0, q.Pending())
}

func TestQueue_ReleaseCancelsAndRejects(t *testing.T) {
	q, err := NewQueue(WithPoolSize(1))
	require.NoError(t, err)

	started := make(chan struct{})
	require.NoError(t, q.Submit("long", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return Permanent(ctx.Err())
	}))
	<-started

	q.Release()
	q.Release()

	assert.ErrorIs(t, q.Submit("late", func(ctx context.Context) error { return nil }), ErrQueueReleased)
}

func TestQueue_FullQueueDoesNotBlock(t *testing.T) {
	q := newTestQueue(t, WithPoolSize(1))

	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, q.Submit("poll:1", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started

	start := time.Now()
	err := q.Submit("poll:2", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, 1, q.Pending(), "rejected task is not tracked")

	close(release)
	q.Wait()
	// The worker returns to the pool shortly after its task finishes.
	assert.Eventually(t, func() bool {
		return q.Submit("poll:2", func(ctx context.Context) error { return nil }) == nil
	}, time.Second, 5*time.Millisecond)
	q.Wait()
}
