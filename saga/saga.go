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

// Package saga tracks compensating actions for multi-step operations that
// span systems without a shared transaction.
//
// Each forward step that commits records how to undo itself. If a later
// step fails, Compensate runs the recorded actions in reverse order.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a saga.
type Status string

const (
	StatusRunning            Status = "running"
	StatusSucceeded          Status = "succeeded"
	StatusCompensating       Status = "compensating"
	StatusCompensated        Status = "compensated"
	StatusCompensationFailed Status = "compensation_failed"
)

// ErrNotRunning indicates a step was recorded or the saga finished after it
// already completed or compensated.
var ErrNotRunning = errors.New("saga is not running")

// Action undoes a committed step.
type Action func(ctx context.Context) error

type step struct {
	name   string
	action Action
}

// Saga records compensations for one operation.
type Saga struct {
	id     string
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	status Status
	steps  []step
}

// New starts a saga named after the operation it guards.
func New(name string, logger *slog.Logger) *Saga {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	return &Saga{
		id:     id,
		name:   name,
		logger: logger.With("component", "saga", "saga", name, "saga_id", id),
		status: StatusRunning,
	}
}

// ID returns the saga's correlation ID.
func (s *Saga) ID() string { return s.id }

// Status returns the current state.
func (s *Saga) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Record registers the compensation for a step that just committed.
func (s *Saga) Record(name string, action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return fmt.Errorf("%w: recording %q in state %s", ErrNotRunning, name, s.status)
	}
	s.steps = append(s.steps, step{name: name, action: action})
	s.logger.Debug("step recorded", "step", name)
	return nil
}

// Succeed marks the saga complete. Recorded compensations are discarded.
func (s *Saga) Succeed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return fmt.Errorf("%w: state %s", ErrNotRunning, s.status)
	}
	s.status = StatusSucceeded
	s.steps = nil
	return nil
}

// Compensate runs every recorded action in reverse order. An action that
// fails does not stop the remaining ones; all failures are joined into the
// returned error.
func (s *Saga) Compensate(ctx context.Context) error {
	s.mu.Lock()
	if s.status != StatusRunning {
		s.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotRunning, s.status)
	}
	s.status = StatusCompensating
	steps := s.steps
	s.steps = nil
	s.mu.Unlock()

	s.logger.Info("compensating", "steps", len(steps))

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		st := steps[i]
		if err := st.action(ctx); err != nil {
			s.logger.Error("compensation failed", "step", st.name, "err", err)
			errs = append(errs, fmt.Errorf("compensating %s: %w", st.name, err))
			continue
		}
		s.logger.Debug("step compensated", "step", st.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(errs) > 0 {
		s.status = StatusCompensationFailed
		return errors.Join(errs...)
	}
	s.status = StatusCompensated
	return nil
}
