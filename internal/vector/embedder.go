package vector

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIEmbedder implements Embedder against an OpenAI-compatible
// embeddings endpoint (hosted or local, e.g. Ollama's /v1 surface).
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	logger   *slog.Logger
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder creates an embedder for the given endpoint and model.
// An empty apiKey falls back to "none" for local services that do not
// require authentication.
func NewOpenAIEmbedder(host, model, apiKey string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(host),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		logger:   slog.Default().With("component", "embedder"),
	}, nil
}

// EmbedText generates an embedding for a single text.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vecs[0], nil
}

// EmbedTexts generates embeddings for a batch of texts.
func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings", "count", len(texts))

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	return vecs, nil
}
