package reembed

import (
	"context"

	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

const (
	// DefaultBatchSize is the default number of embeddings handed to each batch
	DefaultBatchSize = 100
)

// EmbeddingIterator walks the stored embeddings of a project in batches.
type EmbeddingIterator struct {
	repo      storage.EmbeddingRepository
	batchSize int
}

// NewEmbeddingIterator creates a new iterator.
// batchSize <= 0 uses DefaultBatchSize.
func NewEmbeddingIterator(repo storage.EmbeddingRepository, batchSize int) *EmbeddingIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EmbeddingIterator{
		repo:      repo,
		batchSize: batchSize,
	}
}

// ForEach calls fn with consecutive batches of the project's embeddings in ID
// order. It stops at the first error returned by fn or when ctx is done.
func (it *EmbeddingIterator) ForEach(ctx context.Context, projectID core.ID, fn func([]*core.SourceCodeEmbedding) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	embeddings, err := it.repo.ListEmbeddings(ctx, projectID)
	if err != nil {
		return err
	}

	for i := 0; i < len(embeddings); i += it.batchSize {
		end := min(i+it.batchSize, len(embeddings))
		if err := fn(embeddings[i:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
