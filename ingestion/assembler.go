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
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/tmc/langchaingo/schema"
)

// Assembler summarizes and embeds fetched documents concurrently.
type Assembler struct {
	pool   *ants.Pool
	proc   processor
	logger *slog.Logger
}

// NewAssembler creates an assembler backed by its own worker pool.
func NewAssembler(summarizer ai.Summarizer, embedder ai.Embedder, opts ...Option) (*Assembler, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("component", "assembler")

	proc, err := newEmbeddingProcessor(summarizer, embedder, logger)
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(o.poolSize)
	if err != nil {
		return nil, err
	}
	return &Assembler{pool: pool, proc: proc, logger: logger}, nil
}

// Assemble processes every document and returns the ones that were both
// summarized and embedded. Failed documents are logged and omitted, so the
// result may be shorter than docs. Result order is not guaranteed.
func (a *Assembler) Assemble(ctx context.Context, docs []schema.Document) []*core.SourceCodeEmbedding {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]*core.SourceCodeEmbedding, 0, len(docs))
	)

	for _, doc := range docs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			embedding, err := a.proc.process(ctx, doc)
			if err != nil {
				a.logger.Error("error generating embedding for document", "file", sourceOf(doc), "err", err)
				return
			}
			mu.Lock()
			results = append(results, embedding)
			mu.Unlock()
		}
		if err := a.pool.Submit(task); err != nil {
			a.logger.Error("assembler pool rejected document", "file", sourceOf(doc), "err", err)
			wg.Done()
		}
	}
	wg.Wait()

	a.logger.Info("documents assembled", "documents", len(docs), "embedded", len(results))
	return results
}

// Release releases the worker pool.
func (a *Assembler) Release() {
	if a.pool != nil {
		a.pool.Release()
	}
}
