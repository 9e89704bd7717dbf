package reembed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/poiesic/stackalchemy/tasks"
)

// BatchProcessor re-embeds the summaries of a batch of stored files.
type BatchProcessor struct {
	repo           storage.EmbeddingRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each embedding call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(repo storage.EmbeddingRepository, embedder ai.Embedder, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		repo:           repo,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process embeds the summary of every file in the batch and writes the new
// vectors. Files without a summary are skipped and reported in the count.
// Vectors are normalized before they are stored.
func (bp *BatchProcessor) Process(ctx context.Context, batch []*core.SourceCodeEmbedding) (skipped int, err error) {
	targets := make([]*core.SourceCodeEmbedding, 0, len(batch))
	texts := make([]string, 0, len(batch))
	for _, e := range batch {
		if strings.TrimSpace(e.Summary) == "" {
			skipped++
			continue
		}
		targets = append(targets, e)
		texts = append(texts, e.Summary)
	}
	if len(targets) == 0 {
		return skipped, nil
	}

	var vectors [][]float32
	err = tasks.RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, texts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return skipped, fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(vectors) != len(targets) {
		return skipped, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(targets), len(vectors))
	}

	for i, e := range targets {
		if err := bp.repo.SetEmbeddingVector(ctx, e.Id, core.NormalizeVector(vectors[i])); err != nil {
			return skipped, fmt.Errorf("failed to update %s: %w", e.FileName, err)
		}
	}
	return skipped, nil
}
