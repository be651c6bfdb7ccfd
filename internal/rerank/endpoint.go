package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cferrors "github.com/nyayatech/casefind/internal/errors"
)

const (
	defaultCohereEndpoint = "https://api.cohere.com"
	defaultCohereModel    = "rerank-english-v3.0"
	endpointBatchSize     = 100
	endpointTimeout       = 30 * time.Second
)

// CohereReranker scores documents through a Cohere-style /v1/rerank
// endpoint. Any service exposing the same contract works via the
// endpoint override.
type CohereReranker struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
}

var _ Provider = (*CohereReranker)(nil)

// NewCohereReranker creates a rerank-endpoint provider. An empty
// endpoint or model falls back to the Cohere defaults.
func NewCohereReranker(endpoint, model, apiKey string) *CohereReranker {
	if endpoint == "" {
		endpoint = defaultCohereEndpoint
	}
	if model == "" {
		model = defaultCohereModel
	}
	return &CohereReranker{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
	}
}

// Name implements Provider.
func (r *CohereReranker) Name() string { return "cohere" }

// BatchSize implements Provider.
func (r *CohereReranker) BatchSize() int { return endpointBatchSize }

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score implements Provider. The endpoint returns results ordered by
// relevance with original indices; scores are mapped back to input order.
func (r *CohereReranker) Score(ctx context.Context, query string, docs []Document) ([]float64, error) {
	if len(docs) == 0 {
		return []float64{}, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = preview(d)
	}

	body, err := json.Marshal(rerankRequest{
		Model:     r.model,
		Query:     query,
		Documents: texts,
	})
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderRequest, "marshal rerank request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, endpointTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, r.endpoint+"/v1/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderRequest, "create rerank request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeProviderRequest, "rerank request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, cferrors.New(cferrors.ErrCodeProviderRequest,
			fmt.Sprintf("rerank endpoint returned status %d: %s", resp.StatusCode, string(respBody)), nil)
	}

	var result rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, cferrors.New(cferrors.ErrCodeScoreParse, "decode rerank response", err)
	}

	scores := neutralScores(len(docs))
	for _, res := range result.Results {
		if res.Index >= 0 && res.Index < len(scores) {
			scores[res.Index] = clamp01(res.RelevanceScore)
		}
	}
	return scores, nil
}
