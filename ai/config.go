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

package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// GenerationHost is the base URL for the text generation service API
	// used for summaries and answers.
	GenerationHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// GenerationModel is the model identifier to use for summaries and answers.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	GenerationModel string

	// APIToken authenticates against hosted providers. Local servers
	// usually accept any value.
	APIToken string

	// MaxSourceChars caps the source text sent for summarization.
	// Default: 10000
	MaxSourceChars int

	// Prompt templates. See the Placeholder constants for substitutions.
	CodeSummaryPrompt   string
	CommitSummaryPrompt string
	AnswerPrompt        string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithGenerationHost sets the generation service host URL.
func WithGenerationHost(host string) ConfigOption {
	return func(c *Config) {
		c.GenerationHost = host
	}
}

// WithHost sets both embedding and generation hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.GenerationHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithGenerationModel sets the generation model identifier.
func WithGenerationModel(model string) ConfigOption {
	return func(c *Config) {
		c.GenerationModel = model
	}
}

// WithAPIToken sets the bearer token sent to the provider.
func WithAPIToken(token string) ConfigOption {
	return func(c *Config) {
		c.APIToken = token
	}
}

// WithMaxSourceChars sets the summarization input cap.
func WithMaxSourceChars(n int) ConfigOption {
	return func(c *Config) {
		c.MaxSourceChars = n
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:       defaultHost,
		GenerationHost:      defaultHost,
		EmbeddingModel:      "embeddinggemma",
		GenerationModel:     "qwen2.5:3b",
		MaxSourceChars:      10000,
		CodeSummaryPrompt:   DefaultCodeSummaryPrompt,
		CommitSummaryPrompt: DefaultCommitSummaryPrompt,
		AnswerPrompt:        DefaultAnswerPrompt,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Token returns the configured API token, or "none" for local services
// that don't require authentication.
func (c *Config) Token() string {
	if c.APIToken == "" {
		return "none"
	}
	return c.APIToken
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing and fills empty prompts with defaults.
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.GenerationHost = normalizeHost(c.GenerationHost)
	if c.CodeSummaryPrompt == "" {
		c.CodeSummaryPrompt = DefaultCodeSummaryPrompt
	}
	if c.CommitSummaryPrompt == "" {
		c.CommitSummaryPrompt = DefaultCommitSummaryPrompt
	}
	if c.AnswerPrompt == "" {
		c.AnswerPrompt = DefaultAnswerPrompt
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.GenerationHost == "" {
		return errors.New("ai config: GenerationHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.GenerationModel == "" {
		return errors.New("ai config: GenerationModel is required")
	}
	if c.MaxSourceChars < 0 {
		return errors.New("ai config: MaxSourceChars cannot be negative")
	}
	return nil
}
