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

package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// newGenerationClient builds the chat client shared by the summarizer and answerer.
func newGenerationClient(config *ai.Config) (llms.Model, error) {
	return openai.New(
		openai.WithBaseURL(config.GenerationHost),
		openai.WithToken(config.Token()),
		openai.WithModel(config.GenerationModel),
	)
}

// Summarizer implements ai.Summarizer with single-prompt completions.
type Summarizer struct {
	client         llms.Model
	codePrompt     string
	commitPrompt   string
	maxSourceChars int
	logger         *slog.Logger
}

func newSummarizer(config *ai.Config, client llms.Model) *Summarizer {
	return &Summarizer{
		client:         client,
		codePrompt:     config.CodeSummaryPrompt,
		commitPrompt:   config.CommitSummaryPrompt,
		maxSourceChars: config.MaxSourceChars,
		logger:         slog.Default().With("component", "openai-summarizer"),
	}
}

// NewSummarizer creates a standalone summarizer.
func NewSummarizer(config *ai.Config) (ai.Summarizer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client, err := newGenerationClient(config)
	if err != nil {
		return nil, err
	}
	return newSummarizer(config, client), nil
}

// SummarizeCode summarizes a source file, truncated to the configured limit.
func (s *Summarizer) SummarizeCode(ctx context.Context, fileName, source string) (string, error) {
	prompt := ai.RenderPrompt(s.codePrompt, map[string]string{
		ai.PlaceholderFileName: fileName,
		ai.PlaceholderSource:   ai.TruncateSource(source, s.maxSourceChars),
	})

	s.logger.Debug("summarizing file", "file", fileName, "length", len(source))
	summary, err := llms.GenerateFromSinglePrompt(ctx, s.client, prompt, llms.WithTemperature(0.0))
	if err != nil {
		s.logger.Error("failed to summarize file", "file", fileName, "err", err)
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// SummarizeCommit summarizes a formatted commit diff.
func (s *Summarizer) SummarizeCommit(ctx context.Context, diff string) (string, error) {
	prompt := ai.RenderPrompt(s.commitPrompt, map[string]string{
		ai.PlaceholderDiff: ai.TruncateSource(diff, s.maxSourceChars),
	})

	summary, err := llms.GenerateFromSinglePrompt(ctx, s.client, prompt, llms.WithTemperature(0.0))
	if err != nil {
		s.logger.Error("failed to summarize commit", "err", err)
		return "", err
	}
	return strings.TrimSpace(summary), nil
}
