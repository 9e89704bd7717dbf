package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/github"
	"github.com/tmc/langchaingo/schema"
)

// embeddingProcessor summarizes a file and embeds the summary.
type embeddingProcessor struct {
	summarizer ai.Summarizer
	embedder   ai.Embedder
	logger     *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

// newEmbeddingProcessor creates a new embedding processor.
func newEmbeddingProcessor(summarizer ai.Summarizer, embedder ai.Embedder, logger *slog.Logger) (processor, error) {
	if summarizer == nil {
		return nil, fmt.Errorf("summarizer required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &embeddingProcessor{
		summarizer: summarizer,
		embedder:   embedder,
		logger:     logger.With("processor", "embeddings"),
	}, nil
}

// process summarizes the document's source and embeds the summary text.
func (ep *embeddingProcessor) process(ctx context.Context, doc schema.Document) (*core.SourceCodeEmbedding, error) {
	fileName := sourceOf(doc)
	if fileName == "" {
		return nil, fmt.Errorf("document has no %q metadata", github.MetadataSource)
	}

	summary, err := ep.summarizer.SummarizeCode(ctx, fileName, doc.PageContent)
	if err != nil {
		return nil, fmt.Errorf("summarizing %s: %w", fileName, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEmptySummary)
	}

	vector, err := ep.embedder.EmbedText(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", fileName, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%s: %w", fileName, ErrEmptyVector)
	}

	ep.logger.Debug("file embedded", "file", fileName, "dims", len(vector))
	return &core.SourceCodeEmbedding{
		FileName:   fileName,
		SourceCode: doc.PageContent,
		Summary:    summary,
		Checksum:   core.Checksum(doc.PageContent),
		Vector:     vector,
	}, nil
}

func sourceOf(doc schema.Document) string {
	source, _ := doc.Metadata[github.MetadataSource].(string)
	return source
}
