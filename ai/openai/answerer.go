package openai

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
	"github.com/tmc/langchaingo/llms"
)

// Answerer implements ai.Answerer with a streamed chat completion.
type Answerer struct {
	client llms.Model
	prompt string
	logger *slog.Logger
}

func newAnswerer(config *ai.Config, client llms.Model) *Answerer {
	return &Answerer{
		client: client,
		prompt: config.AnswerPrompt,
		logger: slog.Default().With("component", "openai-answerer"),
	}
}

// Answer builds the retrieval prompt and streams the model output to onChunk.
func (a *Answerer) Answer(ctx context.Context, question string, refs []core.FileReference, onChunk ai.ChunkFunc) (string, error) {
	prompt := ai.RenderPrompt(a.prompt, map[string]string{
		ai.PlaceholderQuestion: question,
		ai.PlaceholderContext:  ai.BuildAnswerContext(refs),
	})

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	var streamed strings.Builder
	opts := []llms.CallOption{
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed.Write(chunk)
			if onChunk == nil {
				return nil
			}
			return onChunk(string(chunk))
		}),
	}

	a.logger.Debug("answering question", "references", len(refs))
	response, err := a.client.GenerateContent(ctx, content, opts...)
	if err != nil {
		a.logger.Error("failed to generate answer", "err", err)
		return "", err
	}

	if len(response.Choices) > 0 && response.Choices[0].Content != "" {
		return response.Choices[0].Content, nil
	}
	return streamed.String(), nil
}
