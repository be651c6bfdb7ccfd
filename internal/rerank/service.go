package rerank

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nyayatech/casefind/internal/config"
)

// Service wraps a Provider behind lazy initialization and a never-fail
// scoring surface. Construction is cheap and cannot fail; the provider is
// built on first use, and any failure anywhere (init, request, parsing)
// degrades to neutral scores so a broken provider can never break search.
type Service struct {
	cfg      config.RerankerConfig
	once     sync.Once
	provider Provider
	logger   *slog.Logger
}

// NewService creates a reranker service from configuration. The provider
// is not contacted until the first Rerank call.
func NewService(cfg config.RerankerConfig) *Service {
	return &Service{
		cfg:    cfg,
		logger: slog.Default().With("component", "reranker"),
	}
}

// NewServiceWithProvider creates a service around an explicit provider,
// bypassing config-driven initialization.
func NewServiceWithProvider(p Provider, batchDelay time.Duration) *Service {
	s := &Service{
		cfg:      config.RerankerConfig{Enabled: true, BatchDelay: config.Duration(batchDelay)},
		provider: p,
		logger:   slog.Default().With("component", "reranker"),
	}
	s.once.Do(func() {})
	return s
}

// ensureProvider builds the configured provider exactly once. A
// misconfiguration logs a warning and leaves the service in the
// neutral-score state rather than returning an error.
func (s *Service) ensureProvider() {
	s.once.Do(func() {
		if !s.cfg.Enabled {
			s.logger.Debug("reranker disabled, using neutral scores")
			return
		}

		switch s.cfg.Provider {
		case "cohere":
			if s.cfg.APIKey == "" && s.cfg.Endpoint == "" {
				s.logger.Warn("cohere reranker requires an api key or endpoint, using neutral scores")
				return
			}
			s.provider = NewCohereReranker(s.cfg.Endpoint, s.cfg.Model, s.cfg.APIKey)
		case "openai":
			p, err := NewChatReranker(s.cfg.Endpoint, s.cfg.Model, s.cfg.APIKey)
			if err != nil {
				s.logger.Warn("chat reranker unavailable, using neutral scores", "err", err)
				return
			}
			s.provider = p
		case "gemini":
			if s.cfg.APIKey == "" {
				s.logger.Warn("gemini reranker requires an api key, using neutral scores")
				return
			}
			p, err := NewGenerativeReranker(context.Background(), s.cfg.Model, s.cfg.APIKey)
			if err != nil {
				s.logger.Warn("generative reranker unavailable, using neutral scores", "err", err)
				return
			}
			s.provider = p
		default:
			s.logger.Warn("unknown reranker provider, using neutral scores", "provider", s.cfg.Provider)
		}

		if s.provider != nil {
			s.logger.Info("reranker initialized", "provider", s.provider.Name())
		}
	})
}

// Available reports whether a provider is configured and initialized.
func (s *Service) Available() bool {
	s.ensureProvider()
	return s.provider != nil
}

// Rerank scores every document against the query. It never fails: when
// the provider is unavailable every score is neutral, and when a single
// batch fails only that batch falls back to neutral.
func (s *Service) Rerank(ctx context.Context, query string, docs []Document) []float64 {
	s.ensureProvider()

	if s.provider == nil || len(docs) == 0 {
		return neutralScores(len(docs))
	}

	batchSize := s.provider.BatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	scores := make([]float64, 0, len(docs))
	for start := 0; start < len(docs); start += batchSize {
		end := min(start+batchSize, len(docs))

		if start > 0 && s.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				s.logger.Warn("rerank cancelled, remaining scores neutral", "scored", start)
				return append(scores, neutralScores(len(docs)-start)...)
			case <-time.After(s.cfg.BatchDelay.Std()):
			}
		}

		batch, err := s.provider.Score(ctx, query, docs[start:end])
		if err != nil || len(batch) != end-start {
			s.logger.Warn("rerank batch failed, scores neutral",
				"provider", s.provider.Name(),
				"batch_start", start,
				"batch_size", end-start,
				"err", err)
			batch = neutralScores(end - start)
		}
		for i := range batch {
			batch[i] = clamp01(batch[i])
		}
		scores = append(scores, batch...)
	}
	return scores
}
