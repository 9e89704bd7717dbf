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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of files embedded per request
	BatchSize int

	// ReportInterval is how often to report progress (number of files)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each batch
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Result summarizes a reembedding run.
type Result struct {
	Total      int
	Reembedded int
	Skipped    int
	Elapsed    time.Duration
}

// Reembedder orchestrates the reembedding of a project's files.
type Reembedder struct {
	repo      storage.EmbeddingRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *EmbeddingIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.EmbeddingRepository, embedder ai.Embedder, config *Config, progress io.Writer) (*Reembedder, error) {
	if repo == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewEmbeddingIterator(repo, config.BatchSize),
		logger:    slog.Default().With("component", "reembed"),
	}, nil
}

// Run re-embeds every stored file of projectID with the configured embedder.
// Progress is reported to the configured writer. A failed batch aborts the
// run; batches written before it keep their new vectors.
func (r *Reembedder) Run(ctx context.Context, projectID core.ID) (Result, error) {
	total, err := r.repo.CountEmbeddings(ctx, projectID)
	if err != nil {
		return Result{}, fmt.Errorf("failed to count embeddings: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No files indexed for project %d\n", projectID)
		return Result{}, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d files (batch size: %d)\n", total, r.iterator.batchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	result := Result{Total: total}
	err = r.iterator.ForEach(ctx, projectID, func(batch []*core.SourceCodeEmbedding) error {
		skipped, err := r.processor.Process(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		result.Skipped += skipped
		result.Reembedded += len(batch) - skipped
		tracker.Increment(len(batch), skipped)
		return nil
	})
	result.Elapsed = tracker.Elapsed()
	if err != nil {
		r.logger.Error("reembedding aborted", "project", projectID, "done", result.Reembedded, "err", err)
		return result, err
	}

	tracker.Finish()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d files in %v\n", total, result.Elapsed.Round(time.Millisecond))
	r.logger.Info("reembedding complete", "project", projectID, "reembedded", result.Reembedded, "skipped", result.Skipped)
	return result, nil
}
