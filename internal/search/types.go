// Package search implements hybrid case-law retrieval: a dense vector
// source and a structured metadata source queried in parallel, fused by
// weighted score combination, optionally refined by a hosted reranker.
package search

import (
	"github.com/nyayatech/casefind/internal/config"
	"github.com/nyayatech/casefind/internal/store"
)

// Source identifies which branch produced a candidate.
type Source string

const (
	// SourceVector marks candidates seen only by the vector source.
	SourceVector Source = "vector"
	// SourceMetadata marks candidates seen only by the metadata source.
	SourceMetadata Source = "metadata"
	// SourceHybrid marks candidates seen by both sources.
	SourceHybrid Source = "hybrid"
)

// Candidate is a single fused search result.
type Candidate struct {
	// ID identifies the case document across sources.
	ID string `json:"id"`

	// Title and Text are display fields.
	Title string `json:"title"`
	Text  string `json:"text,omitempty"`

	// VectorScore is the dense similarity score (0-1, 0 if absent).
	VectorScore float64 `json:"vector_score"`

	// MetadataScore is the structured-field relevance score (0-1).
	MetadataScore float64 `json:"metadata_score"`

	// RerankerScore is the hosted reranker score, or the neutral 0.5
	// when reranking is disabled or unavailable.
	RerankerScore float64 `json:"reranker_score"`

	// CombinedScore is the final fused score candidates are ranked by.
	CombinedScore float64 `json:"combined_score"`

	// Source records which branches surfaced this candidate.
	Source Source `json:"source"`

	// Metadata carries structured case fields (court, year, citation,
	// case_type) for display and enrichment.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Weights controls the linear score combination.
type Weights struct {
	// Semantic weights the vector similarity score.
	Semantic float64
	// Reranker weights the hosted reranker score.
	Reranker float64
	// Metadata weights the structured-field relevance score.
	Metadata float64
}

// DefaultWeights returns the standard fusion weights. Semantic similarity
// dominates; the reranker refines; metadata relevance nudges.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.6, Reranker: 0.3, Metadata: 0.1}
}

// Options are per-request search parameters.
type Options struct {
	// MaxResults caps the fused result list.
	MaxResults int

	// DiversityFactor controls duplicate-title/court penalties and the
	// metadata imbalance penalty (0 disables both).
	DiversityFactor float64

	// UseHostedReranker enables the external reranking pass.
	UseHostedReranker bool

	// Weights override the configured fusion weights.
	Weights Weights

	// VectorThreshold drops vector hits scoring below it.
	VectorThreshold float64

	// VectorTopK is how many candidates the vector source is asked for.
	VectorTopK int

	// Filters, when set, bypass query-driven filter extraction.
	Filters *store.Filters
}

// DefaultOptions returns options with package defaults applied.
func DefaultOptions() Options {
	return Options{
		MaxResults:      10,
		DiversityFactor: 0.1,
		VectorTopK:      20,
		Weights:         DefaultWeights(),
	}
}

// OptionsFromConfig builds per-request options from configuration.
func OptionsFromConfig(cfg config.SearchConfig) Options {
	return Options{
		MaxResults:        cfg.MaxResults,
		DiversityFactor:   cfg.DiversityFactor,
		UseHostedReranker: cfg.UseHostedReranker,
		VectorThreshold:   cfg.VectorThreshold,
		VectorTopK:        cfg.VectorTopK,
		Weights: Weights{
			Semantic: cfg.SemanticWeight,
			Reranker: cfg.RerankerWeight,
			Metadata: cfg.MetadataWeight,
		},
	}
}

// normalize fills zero-valued fields with defaults so callers can pass
// a partially populated Options.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.MaxResults <= 0 {
		o.MaxResults = def.MaxResults
	}
	if o.VectorTopK <= 0 {
		o.VectorTopK = def.VectorTopK
	}
	if o.Weights == (Weights{}) {
		o.Weights = def.Weights
	}
	return o
}
