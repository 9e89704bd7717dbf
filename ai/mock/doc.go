// Package mock provides deterministic test doubles for the ai interfaces.
//
// # Usage
//
//	provider := mock.NewMockProvider()
//	summary, _ := provider.Summarizer().SummarizeCode(ctx, "main.go", "package main")
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder().
//	    WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
//	        return []float32{0.1, 0.2, 0.3}, nil
//	    })
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockSummarizer: Returns "summary of <file>" and "summary of commit"
//   - MockAnswerer: Streams the answer word by word and cites every reference
//   - MockProvider: Aggregates the three mocks
//
// Call counters are safe for concurrent use.
package mock
