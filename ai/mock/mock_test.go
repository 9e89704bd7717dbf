package mock

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/stackalchemy/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicVector(t *testing.T) {
	a := DeterministicVector("hello", 16)
	b := DeterministicVector("hello", 16)
	c := DeterministicVector("world", 16)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var sum float64
	for _, v := range a {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMockEmbedder_ConcurrentCallCount(t *testing.T) {
	m := NewMockEmbedder()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.EmbedText(context.Background(), "x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, m.CallCount())

	m.Reset()
	assert.Zero(t, m.CallCount())
}

func TestMockEmbedder_Injected(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockEmbedder().WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if text == "bad" {
			return nil, boom
		}
		return []float32{1}, nil
	})

	_, err := m.EmbedTexts(context.Background(), []string{"ok", "bad"})
	assert.ErrorIs(t, err, boom)

	v, err := m.EmbedText(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, v)
}

func TestMockAnswerer_Streams(t *testing.T) {
	m := NewMockAnswerer()
	var chunks []string
	answer, err := m.Answer(context.Background(), "why?", []core.FileReference{{FileName: "a.go"}, {FileName: "b.go"}}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Answer to why? using a.go, b.go", answer)
	assert.Equal(t, answer, strings.Join(chunks, ""))
	assert.Equal(t, 1, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	summarizer := NewMockSummarizer()
	p := NewMockProviderWithServices(nil, summarizer, nil)

	s, err := p.Summarizer().SummarizeCode(context.Background(), "main.go", "package main")
	require.NoError(t, err)
	assert.Equal(t, "summary of main.go", s)
	assert.Equal(t, 1, p.GetMockSummarizer().CodeCallCount())
	assert.NotNil(t, p.GetMockEmbedder())
	assert.NoError(t, p.Close())
}
