package mock

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/poiesic/stackalchemy/ai"
	"github.com/poiesic/stackalchemy/core"
)

// MockAnswerer is a deterministic ai.Answerer.
type MockAnswerer struct {
	// AnswerFunc is called by Answer if set. Streaming is up to the func.
	AnswerFunc func(ctx context.Context, question string, refs []core.FileReference, onChunk ai.ChunkFunc) (string, error)

	callCount atomic.Int64
}

// NewMockAnswerer creates a mock answerer with default behavior.
func NewMockAnswerer() *MockAnswerer {
	return &MockAnswerer{}
}

// Answer streams "Answer to <question> using <files>" one word at a time.
func (m *MockAnswerer) Answer(ctx context.Context, question string, refs []core.FileReference, onChunk ai.ChunkFunc) (string, error) {
	m.callCount.Add(1)
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, question, refs, onChunk)
	}

	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.FileName
	}
	answer := "Answer to " + question
	if len(names) > 0 {
		answer += " using " + strings.Join(names, ", ")
	}

	if onChunk != nil {
		words := strings.SplitAfter(answer, " ")
		for _, w := range words {
			if err := onChunk(w); err != nil {
				return "", err
			}
		}
	}
	return answer, nil
}

// CallCount returns the number of Answer calls.
func (m *MockAnswerer) CallCount() int {
	return int(m.callCount.Load())
}
