// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Func is a unit of background work. The context is canceled when the
// queue is released.
type Func func(ctx context.Context) error

// Queue runs keyed tasks on an ants worker pool.
type Queue struct {
	pool        *ants.Pool
	poolSize    int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	active   map[string]struct{}
	released bool
}

// Option configures a Queue.
type Option func(*Queue) error

// WithPoolSize sets the number of concurrent workers.
// Default is 4.
func WithPoolSize(size int) Option {
	return func(q *Queue) error {
		if size < 1 {
			size = 1
		}
		q.poolSize = size
		return nil
	}
}

// WithRetry sets the attempts made for each task and the base backoff delay.
// Default is 3 attempts starting at one second.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(q *Queue) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		q.maxAttempts = maxAttempts
		q.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger
		return nil
	}
}

// NewQueue creates a queue and starts its worker pool. Submit never waits
// for a free worker; when all are busy it fails with ErrQueueFull.
func NewQueue(opts ...Option) (*Queue, error) {
	q := &Queue{
		poolSize:    4,
		maxAttempts: 3,
		baseDelay:   time.Second,
		logger:      slog.Default(),
		active:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			return nil, err
		}
	}
	q.logger = q.logger.With("component", "tasks")

	pool, err := ants.NewPool(q.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	q.pool = pool
	q.ctx, q.cancel = context.WithCancel(context.Background())
	return q, nil
}

// Submit hands fn to a free worker under key and returns at once. It returns
// ErrDuplicateTask when a task with the same key is pending or running,
// ErrQueueFull when no worker is free, and ErrQueueReleased after Release.
func (q *Queue) Submit(key string, fn Func) error {
	q.mu.Lock()
	if q.released {
		q.mu.Unlock()
		return ErrQueueReleased
	}
	if _, ok := q.active[key]; ok {
		q.mu.Unlock()
		return ErrDuplicateTask
	}
	q.active[key] = struct{}{}
	q.wg.Add(1)
	q.mu.Unlock()

	taskID := uuid.NewString()
	logger := q.logger.With("task", key, "task_id", taskID)

	err := q.pool.Submit(func() {
		defer q.done(key)
		start := time.Now()
		err := RetryWithBackoff(q.ctx, func() error { return fn(q.ctx) }, q.maxAttempts, q.baseDelay)
		if err != nil {
			logger.Error("background task failed", "err", err, "attempts", q.maxAttempts)
			return
		}
		logger.Debug("background task finished", "elapsed", time.Since(start))
	})
	if errors.Is(err, ants.ErrPoolOverload) {
		q.done(key)
		return ErrQueueFull
	}
	if err != nil {
		q.done(key)
		return fmt.Errorf("submitting task %q: %w", key, err)
	}
	return nil
}

func (q *Queue) done(key string) {
	q.mu.Lock()
	delete(q.active, key)
	q.mu.Unlock()
	q.wg.Done()
}

// Pending returns the number of tasks that are queued or running.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Wait blocks until every submitted task has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Release cancels running tasks, waits for them to return and stops the pool.
// It is safe to call more than once.
func (q *Queue) Release() {
	q.mu.Lock()
	if q.released {
		q.mu.Unlock()
		return
	}
	q.released = true
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	q.pool.Release()
}
