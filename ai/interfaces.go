package ai

import (
	"context"

	"github.com/poiesic/stackalchemy/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer produces short natural-language summaries of code and commits.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// SummarizeCode summarizes the purpose of a single source file.
	SummarizeCode(ctx context.Context, fileName, source string) (string, error)

	// SummarizeCommit summarizes a commit diff as a short bullet list.
	SummarizeCommit(ctx context.Context, diff string) (string, error)
}

// ChunkFunc receives streamed fragments of a generated answer. Returning an
// error aborts generation.
type ChunkFunc func(chunk string) error

// Answerer answers questions about a codebase from retrieved file references.
type Answerer interface {
	// Answer streams the answer through onChunk (which may be nil) and
	// returns the complete text.
	Answer(ctx context.Context, question string, refs []core.FileReference, onChunk ChunkFunc) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Summarizer returns the code and commit summarization service.
	Summarizer() Summarizer

	// Answerer returns the question answering service.
	Answerer() Answerer

	// Close releases resources held by the provider and its services.
	Close() error
}
