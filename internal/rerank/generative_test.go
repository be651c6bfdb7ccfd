package rerank

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeGenerativeReranker(fake *fakeLLM) *GenerativeReranker {
	return &GenerativeReranker{llm: fake, logger: slog.Default()}
}

func TestGenerativeReranker_Score(t *testing.T) {
	fake := &fakeLLM{response: `[0.8, 0.2]`}
	r := newFakeGenerativeReranker(fake)

	scores, err := r.Score(context.Background(), "habeas corpus", []Document{
		{Title: "Detention challenge", Text: "article 22 safeguards"},
		{Title: "Property partition", Text: "ancestral property dispute"},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.8, 0.2}, scores)
	assert.Contains(t, fake.prompt, "habeas corpus")
	assert.Contains(t, fake.prompt, "[0] Detention challenge")
	assert.Contains(t, fake.prompt, "[1] Property partition")
}

func TestGenerativeReranker_ProseWrappedArray(t *testing.T) {
	fake := &fakeLLM{response: "Based on relevance, the scores are [0.7, 0.3]."}
	r := newFakeGenerativeReranker(fake)

	scores, err := r.Score(context.Background(), "q", docFixtures(2))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.7, 0.3}, scores)
}

func TestGenerativeReranker_UnparseableResponse(t *testing.T) {
	fake := &fakeLLM{response: "I cannot rank these documents."}
	r := newFakeGenerativeReranker(fake)

	_, err := r.Score(context.Background(), "q", docFixtures(2))
	assert.Error(t, err)
}

func TestGenerativeReranker_EmptyDocs(t *testing.T) {
	r := newFakeGenerativeReranker(&fakeLLM{})

	scores, err := r.Score(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestGenerativeReranker_BatchSize(t *testing.T) {
	r := newFakeGenerativeReranker(&fakeLLM{})
	assert.Equal(t, 10, r.BatchSize())
	assert.Equal(t, "gemini", r.Name())
}
