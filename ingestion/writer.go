package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

// IndexResult counts the outcome of indexing a batch of files.
// Succeeded + Failed always equals Total.
type IndexResult struct {
	Total     int
	Succeeded int
	Failed    int
}

// Writer persists assembled embeddings. Each file takes two writes: the
// scalar record, then its vector.
type Writer struct {
	embeddings storage.EmbeddingRepository
	pool       *ants.Pool
	logger     *slog.Logger
}

// NewWriter creates a writer backed by its own worker pool.
func NewWriter(embeddings storage.EmbeddingRepository, opts ...Option) (*Writer, error) {
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, err
	}
	return &Writer{
		embeddings: embeddings,
		pool:       pool,
		logger:     o.logger.With("component", "writer"),
	}, nil
}

// Write stores every embedding under projectID. A file counts as indexed
// only when both its record and its vector were written.
// Returns ErrNothingIndexed together with the counts when no file succeeded.
func (w *Writer) Write(ctx context.Context, projectID core.ID, embeddings []*core.SourceCodeEmbedding) (IndexResult, error) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		result = IndexResult{Total: len(embeddings)}
	)
	record := func(err error, file string) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			w.logger.Error("error storing embedding", "project", projectID, "file", file, "err", err)
			result.Failed++
			return
		}
		result.Succeeded++
	}

	for _, embedding := range embeddings {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			record(w.writeOne(ctx, projectID, embedding), embedding.FileName)
		}
		if err := w.pool.Submit(task); err != nil {
			wg.Done()
			record(err, embedding.FileName)
		}
	}
	wg.Wait()

	w.logger.Info("indexing completed", "project", projectID, "success", result.Succeeded, "errors", result.Failed)
	if result.Succeeded == 0 {
		return result, ErrNothingIndexed
	}
	return result, nil
}

func (w *Writer) writeOne(ctx context.Context, projectID core.ID, embedding *core.SourceCodeEmbedding) error {
	if len(embedding.Vector) == 0 {
		return ErrEmptyVector
	}
	scalar := *embedding
	scalar.ProjectId = projectID
	scalar.Vector = nil

	stored, err := w.embeddings.AddEmbedding(ctx, &scalar)
	if err != nil {
		return fmt.Errorf("creating record: %w", err)
	}
	if err := w.embeddings.SetEmbeddingVector(ctx, stored.Id, core.NormalizeVector(embedding.Vector)); err != nil {
		return fmt.Errorf("writing vector for record %d: %w", stored.Id, err)
	}
	return nil
}

// Release releases the worker pool.
func (w *Writer) Release() {
	if w.pool != nil {
		w.pool.Release()
	}
}
