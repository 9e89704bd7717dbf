package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/poiesic/stackalchemy/storage"
)

const (
	// DefaultLimit is the number of files returned when no limit is given.
	DefaultLimit = 10

	// DefaultMinSimilarity drops matches below this cosine similarity.
	DefaultMinSimilarity = 0.5
)

// Searcher finds the stored files most similar to a query.
type Searcher struct {
	embeddings    storage.EmbeddingRepository
	embedder      ai.Embedder
	minSimilarity float32
	keywordBoost  float32
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithMinSimilarity sets the cosine similarity a match needs.
// Default is DefaultMinSimilarity.
func WithMinSimilarity(min float32) Option {
	return func(s *Searcher) error {
		if min < -1 || min > 1 {
			return fmt.Errorf("min similarity must be within [-1, 1], got %v", min)
		}
		s.minSimilarity = min
		return nil
	}
}

// WithKeywordBoost adds weight to the score of hits whose summary or file
// name contains every significant query word. Zero disables it (default).
func WithKeywordBoost(weight float32) Option {
	return func(s *Searcher) error {
		if weight < 0 {
			return fmt.Errorf("keyword boost cannot be negative")
		}
		s.keywordBoost = weight
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(embeddings storage.EmbeddingRepository, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		embeddings:    embeddings,
		embedder:      embedder,
		minSimilarity: DefaultMinSimilarity,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// FindRelevant returns up to limit files of projectID ranked by relevance
// to query, highest first. limit <= 0 uses DefaultLimit.
func (s *Searcher) FindRelevant(ctx context.Context, projectID core.ID, query string, limit int) ([]*core.SearchResult, error) {
	return s.FindRelevantWithMonitor(ctx, projectID, query, limit, nil)
}

// FindRelevantWithMonitor is FindRelevant reporting each stage to monitor.
func (s *Searcher) FindRelevantWithMonitor(ctx context.Context, projectID core.ID, query string, limit int, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	monitor.Start(projectID, query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}

	hits, err := s.embeddings.FindSimilar(ctx, projectID, vector, s.minSimilarity, limit)
	if err != nil {
		s.logger.Error("error querying for similar files", "project", projectID, "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(hits)

	if s.keywordBoost > 0 {
		boosted := false
		for _, hit := range hits {
			if containsAllQueryWords(hit.Embedding.FileName+" "+hit.Embedding.Summary, query) {
				hit.Score += s.keywordBoost
				boosted = true
				monitor.KeywordHit(hit)
			}
		}
		if boosted {
			slices.SortStableFunc(hits, func(a, b *core.SearchResult) int {
				switch {
				case a.Score > b.Score:
					return -1
				case a.Score < b.Score:
					return 1
				}
				return 0
			})
		}
	}

	s.logger.Debug("search finished", "project", projectID, "hits", len(hits))
	monitor.Finish(hits)
	return hits, nil
}
