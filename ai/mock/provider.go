package mock

import "github.com/poiesic/stackalchemy/ai"

// MockProvider implements ai.AIProvider with mock services.
type MockProvider struct {
	embedder   *MockEmbedder
	summarizer *MockSummarizer
	answerer   *MockAnswerer
}

// NewMockProvider creates a provider with default mock services.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		summarizer: NewMockSummarizer(),
		answerer:   NewMockAnswerer(),
	}
}

// NewMockProviderWithServices creates a provider from caller-configured mocks.
// Nil services are replaced with defaults.
func NewMockProviderWithServices(embedder *MockEmbedder, summarizer *MockSummarizer, answerer *MockAnswerer) *MockProvider {
	p := NewMockProvider()
	if embedder != nil {
		p.embedder = embedder
	}
	if summarizer != nil {
		p.summarizer = summarizer
	}
	if answerer != nil {
		p.answerer = answerer
	}
	return p
}

func (p *MockProvider) Embedder() ai.Embedder     { return p.embedder }
func (p *MockProvider) Summarizer() ai.Summarizer { return p.summarizer }
func (p *MockProvider) Answerer() ai.Answerer     { return p.answerer }
func (p *MockProvider) Close() error              { return nil }

// GetMockEmbedder returns the concrete embedder for assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder { return p.embedder }

// GetMockSummarizer returns the concrete summarizer for assertions.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer { return p.summarizer }

// GetMockAnswerer returns the concrete answerer for assertions.
func (p *MockProvider) GetMockAnswerer() *MockAnswerer { return p.answerer }
