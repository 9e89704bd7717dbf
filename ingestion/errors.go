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

import "errors"

var (
	// ErrEmbeddingRepositoryRequired is returned when an embedding repository is not provided.
	ErrEmbeddingRepositoryRequired = errors.New("embedding repository required")

	// ErrFetcherRequired is returned when a repository fetcher is not provided.
	ErrFetcherRequired = errors.New("repository fetcher required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrNothingIndexed is returned when no file of a repository could be stored.
	ErrNothingIndexed = errors.New("Failed to index any files from the repository")

	// ErrEmptySummary indicates the summarizer returned no text for a file.
	ErrEmptySummary = errors.New("empty summary")

	// ErrEmptyVector indicates the embedder returned no vector for a summary.
	ErrEmptyVector = errors.New("empty embedding vector")
)
