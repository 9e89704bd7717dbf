package openai

import (
	"log/slog"

	"github.com/poiesic/stackalchemy/ai"
)

// Provider implements ai.AIProvider over OpenAI-compatible endpoints.
type Provider struct {
	config     *ai.Config
	embedder   *Embedder
	summarizer *Summarizer
	answerer   *Answerer
	logger     *slog.Logger
}

// NewProvider creates a provider whose services share config.
//
// Returns ai.AIProvider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerationClient(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:     config,
		embedder:   embedder,
		summarizer: newSummarizer(config, generator),
		answerer:   newAnswerer(config, generator),
		logger:     slog.Default().With("component", "openai-provider"),
	}, nil
}

// Embedder returns the embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Summarizer returns the summarization service.
func (p *Provider) Summarizer() ai.Summarizer {
	return p.summarizer
}

// Answerer returns the question answering service.
func (p *Provider) Answerer() ai.Answerer {
	return p.answerer
}

// Close releases provider resources.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
