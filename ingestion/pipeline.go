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

package ingestion

import (
	"context"
	"log/slog"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/tmc/langchaingo/schema"
)

// Fetcher loads the files of a remote repository.
type Fetcher interface {
	LoadRepository(ctx context.Context, repoURL, token string) ([]schema.Document, error)
}

// Indexer runs the fetch, assemble and write stages for a project.
type Indexer struct {
	fetcher   Fetcher
	assembler *Assembler
	writer    *Writer
	logger    *slog.Logger
}

// NewIndexer creates an indexer. The options apply to both worker pools.
func NewIndexer(
	fetcher Fetcher,
	provider ai.AIProvider,
	embeddings storage.EmbeddingRepository,
	opts ...Option,
) (*Indexer, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	assembler, err := NewAssembler(provider.Summarizer(), provider.Embedder(), opts...)
	if err != nil {
		return nil, err
	}
	writer, err := NewWriter(embeddings, opts...)
	if err != nil {
		assembler.Release()
		return nil, err
	}

	return &Indexer{
		fetcher:   fetcher,
		assembler: assembler,
		writer:    writer,
		logger:    o.logger.With("component", "indexer"),
	}, nil
}

// Index fetches repoURL and stores an embedding for every file that makes it
// through all stages. Files dropped by the assembler count as failures, so
// Total is the number of fetched files.
//
// Fetch errors are returned as-is. ErrNothingIndexed is returned, with the
// counts, when no file was stored. A partially indexed project is usable.
func (ix *Indexer) Index(ctx context.Context, projectID core.ID, repoURL, token string) (IndexResult, error) {
	logger := ix.logger.With("project", projectID)
	logger.Info("starting indexing", "url", repoURL)

	docs, err := ix.fetcher.LoadRepository(ctx, repoURL, token)
	if err != nil {
		logger.Error("failed to load repository", "err", err)
		return IndexResult{}, err
	}
	logger.Info("loaded documents from repository", "documents", len(docs))

	embeddings := ix.assembler.Assemble(ctx, docs)
	logger.Info("generated embeddings", "embeddings", len(embeddings))

	result, err := ix.writer.Write(ctx, projectID, embeddings)
	dropped := len(docs) - len(embeddings)
	result.Total += dropped
	result.Failed += dropped

	logger.Info("indexing finished", "total", result.Total, "success", result.Succeeded, "errors", result.Failed)
	return result, err
}

// Release releases resources including worker pools.
// The indexer should not be used after calling Release.
func (ix *Indexer) Release() {
	ix.assembler.Release()
	ix.writer.Release()
}
