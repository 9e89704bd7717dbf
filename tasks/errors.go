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

import "errors"

var (
	// ErrInvalidMaxAttempts indicates that maxAttempts must be greater than zero.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrQueueReleased indicates a task was submitted after Release.
	ErrQueueReleased = errors.New("task queue has been released")

	// ErrDuplicateTask indicates a task with the same key is already pending or running.
	ErrDuplicateTask = errors.New("task already pending")

	// ErrQueueFull indicates every worker is busy; the task was not queued.
	ErrQueueFull = errors.New("task queue is full")
)
