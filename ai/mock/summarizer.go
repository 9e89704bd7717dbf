package mock

import (
	"context"
	"sync/atomic"
)

// MockSummarizer is a deterministic ai.Summarizer.
type MockSummarizer struct {
	// SummarizeCodeFunc is called by SummarizeCode if set.
	SummarizeCodeFunc func(ctx context.Context, fileName, source string) (string, error)

	// SummarizeCommitFunc is called by SummarizeCommit if set.
	SummarizeCommitFunc func(ctx context.Context, diff string) (string, error)

	codeCalls   atomic.Int64
	commitCalls atomic.Int64
}

// NewMockSummarizer creates a mock summarizer with default behavior.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// WithSummarizeCodeFunc sets SummarizeCodeFunc and returns the summarizer.
func (m *MockSummarizer) WithSummarizeCodeFunc(fn func(ctx context.Context, fileName, source string) (string, error)) *MockSummarizer {
	m.SummarizeCodeFunc = fn
	return m
}

// WithSummarizeCommitFunc sets SummarizeCommitFunc and returns the summarizer.
func (m *MockSummarizer) WithSummarizeCommitFunc(fn func(ctx context.Context, diff string) (string, error)) *MockSummarizer {
	m.SummarizeCommitFunc = fn
	return m
}

func (m *MockSummarizer) SummarizeCode(ctx context.Context, fileName, source string) (string, error) {
	m.codeCalls.Add(1)
	if m.SummarizeCodeFunc != nil {
		return m.SummarizeCodeFunc(ctx, fileName, source)
	}
	return "summary of " + fileName, nil
}

func (m *MockSummarizer) SummarizeCommit(ctx context.Context, diff string) (string, error) {
	m.commitCalls.Add(1)
	if m.SummarizeCommitFunc != nil {
		return m.SummarizeCommitFunc(ctx, diff)
	}
	return "summary of commit", nil
}

// CodeCallCount returns the number of SummarizeCode calls.
func (m *MockSummarizer) CodeCallCount() int {
	return int(m.codeCalls.Load())
}

// CommitCallCount returns the number of SummarizeCommit calls.
func (m *MockSummarizer) CommitCallCount() int {
	return int(m.commitCalls.Load())
}
