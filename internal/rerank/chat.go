package rerank

import (
	"context"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	cferrors "github.com/nyayatech/casefind/internal/errors"
)

const (
	defaultChatModel = "gpt-4o-mini"
	chatBatchSize    = 10
)

const chatSystemPrompt = `You are a relevance judge for legal case search.
Given a query and a numbered list of case documents, score how relevant
each document is to the query on a scale from 0.0 (irrelevant) to 1.0
(directly on point).
Respond with JSON only, in the form {"scores": [s0, s1, ...]}, with one
score per document in the listed order.`

// ChatReranker scores documents through an OpenAI-compatible chat
// completion API, asking the model for a JSON score array.
type ChatReranker struct {
	llm    llms.Model
	logger *slog.Logger
}

var _ Provider = (*ChatReranker)(nil)

// NewChatReranker creates a chat-completion provider. An empty endpoint
// uses the OpenAI default; an empty apiKey falls back to "none" for
// local gateways without authentication.
func NewChatReranker(endpoint, model, apiKey string) (*ChatReranker, error) {
	if model == "" {
		model = defaultChatModel
	}
	if apiKey == "" {
		apiKey = "none"
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if endpoint != "" {
		opts = append(opts, openai.WithBaseURL(endpoint))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderMisconfigured, "create chat reranker client", err)
	}

	return &ChatReranker{
		llm:    llm,
		logger: slog.Default().With("component", "chat-reranker"),
	}, nil
}

// Name implements Provider.
func (r *ChatReranker) Name() string { return "openai" }

// BatchSize implements Provider.
func (r *ChatReranker) BatchSize() int { return chatBatchSize }

// Score implements Provider.
func (r *ChatReranker) Score(ctx context.Context, query string, docs []Document) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	userPrompt := "Query: " + query + "\n\nDocuments:\n" + indexedPreviews(docs)
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(chatSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}

	response, err := r.llm.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderRequest, "chat completion failed", err)
	}
	if len(response.Choices) == 0 {
		return nil, cferrors.New(cferrors.ErrCodeScoreParse, "chat completion returned no choices", nil)
	}

	scores := parseScores(response.Choices[0].Content, len(docs))
	if scores == nil {
		r.logger.Warn("unparseable score response", "response", response.Choices[0].Content)
		return nil, cferrors.New(cferrors.ErrCodeScoreParse, "no scores in chat response", nil)
	}
	return scores, nil
}
