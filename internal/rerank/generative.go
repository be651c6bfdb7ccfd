package rerank

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"

	cferrors "github.com/nyayatech/casefind/internal/errors"
)

const (
	defaultGenerativeModel = "gemini-1.5-flash"
	generativeBatchSize    = 10
)

const generativePromptHeader = `Score how relevant each numbered legal case
document is to the query, from 0.0 (irrelevant) to 1.0 (directly on point).
Reply with only a JSON array of scores in document order, e.g. [0.9, 0.2].`

// GenerativeReranker scores documents through a plain text-generation
// model without a JSON response mode, so parsing is lenient.
type GenerativeReranker struct {
	llm    llms.Model
	logger *slog.Logger
}

var _ Provider = (*GenerativeReranker)(nil)

// NewGenerativeReranker creates a Gemini-backed provider.
func NewGenerativeReranker(ctx context.Context, model, apiKey string) (*GenerativeReranker, error) {
	if model == "" {
		model = defaultGenerativeModel
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderMisconfigured, "create generative reranker client", err)
	}

	return &GenerativeReranker{
		llm:    llm,
		logger: slog.Default().With("component", "generative-reranker"),
	}, nil
}

// Name implements Provider.
func (r *GenerativeReranker) Name() string { return "gemini" }

// BatchSize implements Provider.
func (r *GenerativeReranker) BatchSize() int { return generativeBatchSize }

// Score implements Provider.
func (r *GenerativeReranker) Score(ctx context.Context, query string, docs []Document) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	prompt := generativePromptHeader + "\n\nQuery: " + query + "\n\nDocuments:\n" + indexedPreviews(docs)

	response, err := llms.GenerateFromSinglePrompt(ctx, r.llm, prompt, llms.WithTemperature(0.0))
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderRequest, "generation failed", err)
	}

	scores := parseScores(response, len(docs))
	if scores == nil {
		r.logger.Warn("unparseable score response", "response", response)
		return nil, cferrors.New(cferrors.ErrCodeScoreParse, "no scores in generated response", nil)
	}
	return scores, nil
}
