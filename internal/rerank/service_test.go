package rerank

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayatech/casefind/internal/config"
)

// fakeProvider records calls and returns scripted scores per batch.
type fakeProvider struct {
	batchSize int
	batches   [][]Document
	scores    [][]float64
	errs      []error
}

func (f *fakeProvider) Name() string   { return "fake" }
func (f *fakeProvider) BatchSize() int { return f.batchSize }

func (f *fakeProvider) Score(_ context.Context, _ string, docs []Document) ([]float64, error) {
	call := len(f.batches)
	f.batches = append(f.batches, docs)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	if call < len(f.scores) {
		return f.scores[call], nil
	}
	return neutralScores(len(docs)), nil
}

func docFixtures(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{Title: fmt.Sprintf("Case %d", i), Text: "some holding"}
	}
	return docs
}

func TestService_DisabledReturnsNeutral(t *testing.T) {
	s := NewService(config.RerankerConfig{Enabled: false})

	scores := s.Rerank(context.Background(), "liberty", docFixtures(3))

	assert.Equal(t, []float64{0.5, 0.5, 0.5}, scores)
	assert.False(t, s.Available())
}

func TestService_UnknownProviderReturnsNeutral(t *testing.T) {
	s := NewService(config.RerankerConfig{Enabled: true, Provider: "voodoo"})

	scores := s.Rerank(context.Background(), "liberty", docFixtures(2))

	assert.Equal(t, []float64{0.5, 0.5}, scores)
	assert.False(t, s.Available())
}

func TestService_MissingKeyReturnsNeutral(t *testing.T) {
	for _, provider := range []string{"cohere", "gemini"} {
		t.Run(provider, func(t *testing.T) {
			s := NewService(config.RerankerConfig{Enabled: true, Provider: provider})

			scores := s.Rerank(context.Background(), "liberty", docFixtures(1))

			assert.Equal(t, []float64{0.5}, scores)
			assert.False(t, s.Available())
		})
	}
}

func TestService_ScoresInBatches(t *testing.T) {
	fake := &fakeProvider{
		batchSize: 2,
		scores:    [][]float64{{0.9, 0.8}, {0.7}},
	}
	s := NewServiceWithProvider(fake, 0)

	scores := s.Rerank(context.Background(), "liberty", docFixtures(3))

	require.Len(t, fake.batches, 2)
	assert.Len(t, fake.batches[0], 2)
	assert.Len(t, fake.batches[1], 1)
	assert.Equal(t, []float64{0.9, 0.8, 0.7}, scores)
	assert.True(t, s.Available())
}

func TestService_FailedBatchFallsBackToNeutral(t *testing.T) {
	fake := &fakeProvider{
		batchSize: 2,
		scores:    [][]float64{{0.9, 0.8}, nil},
		errs:      []error{nil, fmt.Errorf("upstream down")},
	}
	s := NewServiceWithProvider(fake, 0)

	scores := s.Rerank(context.Background(), "liberty", docFixtures(4))

	assert.Equal(t, []float64{0.9, 0.8, 0.5, 0.5}, scores)
}

func TestService_WrongLengthBatchFallsBackToNeutral(t *testing.T) {
	fake := &fakeProvider{
		batchSize: 3,
		scores:    [][]float64{{0.9}}, // provider returned too few
	}
	s := NewServiceWithProvider(fake, 0)

	scores := s.Rerank(context.Background(), "liberty", docFixtures(3))

	assert.Equal(t, []float64{0.5, 0.5, 0.5}, scores)
}

func TestService_ClampsProviderScores(t *testing.T) {
	fake := &fakeProvider{
		batchSize: 2,
		scores:    [][]float64{{1.7, -0.3}},
	}
	s := NewServiceWithProvider(fake, 0)

	scores := s.Rerank(context.Background(), "liberty", docFixtures(2))

	assert.Equal(t, []float64{1.0, 0.0}, scores)
}

func TestService_CancelledContextNeutralRemainder(t *testing.T) {
	fake := &fakeProvider{
		batchSize: 1,
		scores:    [][]float64{{0.9}},
	}
	s := NewServiceWithProvider(fake, time.Minute) // long delay forces the ctx check

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scores := s.Rerank(ctx, "liberty", docFixtures(3))

	require.Len(t, scores, 3)
	assert.Equal(t, 0.9, scores[0])
	assert.Equal(t, []float64{0.5, 0.5}, scores[1:])
}

func TestService_EmptyInput(t *testing.T) {
	s := NewServiceWithProvider(&fakeProvider{batchSize: 2}, 0)

	assert.Empty(t, s.Rerank(context.Background(), "liberty", nil))
}
