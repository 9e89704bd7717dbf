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

// Package stackalchemy wires the storage backend, AI provider, GitHub client
// and pipelines into a ready to use project service.
package stackalchemy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/ai/openai"
	"github.com/poiesic/stackalchemy/commits"
	"github.com/poiesic/stackalchemy/config"
	"github.com/poiesic/stackalchemy/github"
	"github.com/poiesic/stackalchemy/ingestion"
	"github.com/poiesic/stackalchemy/projects"
	"github.com/poiesic/stackalchemy/reembed"
	"github.com/poiesic/stackalchemy/search"
	"github.com/poiesic/stackalchemy/storage"
	"github.com/poiesic/stackalchemy/storage/badger"
	"github.com/poiesic/stackalchemy/storage/postgres"
)

// App wires the store, AI provider, GitHub client, ingestion pipeline,
// commit poller and searcher behind a projects.Service. Close releases all
// of them.
type App struct {
	cfg      *config.Config
	store    storage.Store
	provider ai.AIProvider
	github   *github.Client
	indexer  *ingestion.Indexer
	poller   *commits.Poller
	searcher *search.Searcher
	service  *projects.Service
	logger   *slog.Logger
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	store      storage.Store
	provider   ai.AIProvider
	githubOpts []github.Option
	logger     *slog.Logger
}

// WithStore uses an already opened store instead of the configured backend.
// The App takes ownership and closes it.
func WithStore(store storage.Store) Option {
	return func(o *appOptions) {
		o.store = store
	}
}

// WithAIProvider uses provider instead of an OpenAI compatible one built
// from the [ai] config section.
func WithAIProvider(provider ai.AIProvider) Option {
	return func(o *appOptions) {
		o.provider = provider
	}
}

// WithGitHubOptions appends client options after those from the config.
func WithGitHubOptions(opts ...github.Option) Option {
	return func(o *appOptions) {
		o.githubOpts = append(o.githubOpts, opts...)
	}
}

// WithLogger sets the logger the App and its components log through.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *appOptions) {
		o.logger = logger
	}
}

// Open builds an App from cfg. A nil cfg means config.DefaultConfig().
func Open(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	options := &appOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	app := &App{cfg: cfg, logger: options.logger}
	if err := app.init(options); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(options *appOptions) error {
	var err error

	a.store = options.store
	if a.store == nil {
		if a.store, err = OpenStore(a.cfg, a.logger); err != nil {
			return err
		}
	}

	a.provider = options.provider
	if a.provider == nil {
		if a.provider, err = openai.NewProvider(a.cfg.AIConfig()); err != nil {
			return fmt.Errorf("failed to create AI provider: %w", err)
		}
	}

	githubOpts := append(a.cfg.GitHubOptions(), github.WithLogger(a.logger))
	if a.github, err = github.NewClient(append(githubOpts, options.githubOpts...)...); err != nil {
		return err
	}

	a.indexer, err = ingestion.NewIndexer(a.github, a.provider, a.store.Embeddings(),
		ingestion.WithPoolSize(a.cfg.Ingestion.PoolSize),
		ingestion.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	a.poller, err = commits.NewPoller(a.store.Projects(), a.store.Commits(), a.github, a.provider.Summarizer(),
		commits.WithPoolSize(a.cfg.Commits.PoolSize),
		commits.WithPageSize(a.cfg.Commits.PageSize),
		commits.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	a.searcher, err = search.NewSearcher(a.store.Embeddings(), a.provider.Embedder(),
		search.WithMinSimilarity(a.cfg.Search.MinSimilarity),
		search.WithKeywordBoost(a.cfg.Search.KeywordBoost),
		search.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	a.service, err = projects.NewService(a.store, a.indexer, a.poller, a.searcher, a.provider.Answerer(),
		projects.WithTopK(a.cfg.Search.TopK),
		projects.WithLogger(a.logger),
	)
	return err
}

// OpenStore opens the storage backend named by cfg.
func OpenStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		store, err := badger.OpenStore(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		return store, nil
	case config.BackendPostgres:
		store, err := postgres.Open(cfg.Storage.DSN,
			postgres.WithLogger(logger),
			postgres.WithQueryLogging(logger.Enabled(context.Background(), slog.LevelDebug)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Storage.Backend)
	}
}

// Close waits for background work and releases everything the App opened.
func (a *App) Close() error {
	if a.service != nil {
		a.service.WaitForBackground()
		a.service.Close()
	}
	if a.poller != nil {
		a.poller.Release()
	}
	if a.indexer != nil {
		a.indexer.Release()
	}

	var errs []error
	if a.provider != nil {
		if err := a.provider.Close(); err != nil {
			a.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("error closing store", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) Service() *projects.Service { return a.service }

func (a *App) Store() storage.Store { return a.store }

func (a *App) Searcher() *search.Searcher { return a.searcher }

// NewReembedder returns a reembedder over the App's embeddings and embedder.
func (a *App) NewReembedder(cfg *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(a.store.Embeddings(), a.provider.Embedder(), cfg, progress)
}
