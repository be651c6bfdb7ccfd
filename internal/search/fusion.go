package search

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	cferrors "github.com/nyayatech/casefind/internal/errors"
	"github.com/nyayatech/casefind/internal/rerank"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/internal/vector"
)

// Engine fuses vector hits and metadata records into a single ranked
// candidate list using weighted score combination.
//
// Pipeline: merge by document ID → score (metadata relevance, optional
// reranker) → combine → imbalance penalty → diversity pass → sort →
// truncate. The sort is fully deterministic so identical inputs always
// produce identical output.
type Engine struct {
	reranker *rerank.Service
	logger   *slog.Logger
}

// NewEngine creates a fusion engine. A nil reranker service behaves like
// a disabled one: every candidate gets the neutral score.
func NewEngine(reranker *rerank.Service) *Engine {
	return &Engine{
		reranker: reranker,
		logger:   slog.Default().With("component", "fusion"),
	}
}

// Fuse merges and ranks candidates from both search branches.
func (e *Engine) Fuse(ctx context.Context, query string, vecHits []*vector.Hit, metaRecs []*store.CaseRecord, filters store.Filters, opts Options) ([]*Candidate, error) {
	opts = opts.normalize()

	if opts.Weights.Semantic < 0 || opts.Weights.Reranker < 0 || opts.Weights.Metadata < 0 {
		return nil, cferrors.FusionError("fusion weights must be non-negative", nil)
	}

	candidates := e.merge(query, vecHits, metaRecs, filters)
	if len(candidates) == 0 {
		return []*Candidate{}, nil
	}

	e.applyRerankerScores(ctx, query, candidates, opts)

	// When the metadata branch floods the merge with more raw candidates
	// than the vector branch produced, metadata-only hits are damped so
	// broad filter matches cannot bury the sparser semantic results.
	metadataFlood := len(metaRecs) > len(vecHits)

	for _, c := range candidates {
		c.CombinedScore = clamp01(opts.Weights.Semantic*c.VectorScore +
			opts.Weights.Reranker*c.RerankerScore +
			opts.Weights.Metadata*c.MetadataScore)

		if metadataFlood && c.Source == SourceMetadata {
			c.CombinedScore *= 1 - opts.DiversityFactor
		}
	}

	sortCandidates(candidates)
	e.applyDiversityPenalties(candidates, opts.DiversityFactor)
	sortCandidates(candidates)

	if len(candidates) > opts.MaxResults {
		candidates = candidates[:opts.MaxResults]
	}

	e.logger.Debug("fusion complete",
		"vector_hits", len(vecHits),
		"metadata_records", len(metaRecs),
		"results", len(candidates))
	return candidates, nil
}

// merge joins both branches by document ID. Metadata fields win on
// conflict because the store is authoritative for structured data.
func (e *Engine) merge(query string, vecHits []*vector.Hit, metaRecs []*store.CaseRecord, filters store.Filters) []*Candidate {
	queryTokens := tokenize(query)

	byID := make(map[string]*Candidate, len(vecHits)+len(metaRecs))
	ordered := make([]*Candidate, 0, len(vecHits)+len(metaRecs))

	for _, hit := range vecHits {
		if hit.ID == "" {
			continue
		}
		if _, dup := byID[hit.ID]; dup {
			continue
		}
		c := &Candidate{
			ID:          hit.ID,
			Title:       hit.Title,
			Text:        hit.Text,
			VectorScore: clamp01(hit.Score),
			Source:      SourceVector,
			Metadata:    copyMetadata(hit.Metadata),
		}
		byID[hit.ID] = c
		ordered = append(ordered, c)
	}

	for _, rec := range metaRecs {
		if rec.DocID == "" {
			continue
		}
		metaScore := metadataRelevance(queryTokens, rec, filters)

		if c, ok := byID[rec.DocID]; ok {
			c.Source = SourceHybrid
			c.MetadataScore = metaScore
			if rec.Title != "" {
				c.Title = rec.Title
			}
			if c.Text == "" {
				c.Text = summarizeRecord(rec)
			}
			mergeMetadata(c, rec)
			continue
		}

		c := &Candidate{
			ID:            rec.DocID,
			Title:         rec.Title,
			Text:          summarizeRecord(rec),
			MetadataScore: metaScore,
			Source:        SourceMetadata,
		}
		mergeMetadata(c, rec)
		byID[rec.DocID] = c
		ordered = append(ordered, c)
	}

	return ordered
}

// applyRerankerScores fills RerankerScore for every candidate. The
// reranker service never fails; when disabled every score is neutral so
// the reranker weight contributes a constant and cannot reorder results.
func (e *Engine) applyRerankerScores(ctx context.Context, query string, candidates []*Candidate, opts Options) {
	if !opts.UseHostedReranker || e.reranker == nil {
		for _, c := range candidates {
			c.RerankerScore = rerank.NeutralScore
		}
		return
	}

	docs := make([]rerank.Document, len(candidates))
	for i, c := range candidates {
		docs[i] = rerank.Document{Title: c.Title, Text: c.Text}
	}
	scores := e.reranker.Rerank(ctx, query, docs)
	for i, c := range candidates {
		c.RerankerScore = scores[i]
	}
}

// applyDiversityPenalties walks candidates in rank order and penalizes
// repeats: a duplicate normalized title costs the full factor, a repeated
// court half of it. Scores never go below zero.
func (e *Engine) applyDiversityPenalties(candidates []*Candidate, factor float64) {
	if factor <= 0 {
		return
	}

	seenTitles := make(map[string]bool)
	seenCourts := make(map[string]bool)

	for _, c := range candidates {
		title := normalizeTitle(c.Title)
		court := strings.ToLower(c.Metadata["court"])

		if title != "" && seenTitles[title] {
			c.CombinedScore -= factor
		}
		if court != "" && seenCourts[court] {
			c.CombinedScore -= factor * 0.5
		}
		if c.CombinedScore < 0 {
			c.CombinedScore = 0
		}

		if title != "" {
			seenTitles[title] = true
		}
		if court != "" {
			seenCourts[court] = true
		}
	}
}

// sortCandidates orders by combined score, preferring hybrid candidates
// on ties, then higher vector score, then ID for full determinism.
func sortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.CombinedScore != b.CombinedScore {
			return a.CombinedScore > b.CombinedScore
		}
		if (a.Source == SourceHybrid) != (b.Source == SourceHybrid) {
			return a.Source == SourceHybrid
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		return a.ID < b.ID
	})
}

// summarizeRecord synthesizes display text for a candidate the vector
// source never saw.
func summarizeRecord(rec *store.CaseRecord) string {
	parts := make([]string, 0, 6)
	if rec.Citation != "" {
		parts = append(parts, rec.Citation)
	}
	if rec.Court != "" {
		parts = append(parts, rec.Court)
	}
	if rec.Year != 0 {
		parts = append(parts, strconv.Itoa(rec.Year))
	}
	if rec.CaseType != "" {
		parts = append(parts, rec.CaseType)
	}
	if rec.Petitioner != "" && rec.Respondent != "" {
		parts = append(parts, rec.Petitioner+" v. "+rec.Respondent)
	}
	if len(rec.Keywords) > 0 {
		parts = append(parts, strings.Join(rec.Keywords, ", "))
	}
	return strings.Join(parts, "; ")
}

// mergeMetadata copies the record's structured fields into the candidate.
func mergeMetadata(c *Candidate, rec *store.CaseRecord) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]string, 4)
	}
	if rec.Court != "" {
		c.Metadata["court"] = rec.Court
	}
	if rec.Year != 0 {
		c.Metadata["year"] = strconv.Itoa(rec.Year)
	}
	if rec.Citation != "" {
		c.Metadata["citation"] = rec.Citation
	}
	if rec.CaseType != "" {
		c.Metadata["case_type"] = rec.CaseType
	}
}

func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
