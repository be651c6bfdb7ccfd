package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	cferrors "github.com/nyayatech/casefind/internal/errors"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/internal/vector"
)

// enrichCacheSize bounds the record cache used during result enrichment.
const enrichCacheSize = 256

// Orchestrator runs a hybrid search end to end: filter extraction,
// parallel fan-out to both sources, fusion, and result enrichment.
//
// Fault tolerance is per branch. A failed source contributes nothing and
// the search continues with whatever the other source returned; when every
// branch fails the search degrades to an empty result list. Only invalid
// input is rejected with an error.
type Orchestrator struct {
	meta      store.MetadataStore
	vec       vector.Client
	extractor *FilterExtractor
	engine    *Engine
	cache     *lru.Cache[string, *store.CaseRecord]
	defaults  Options
	logger    *slog.Logger
}

// NewOrchestrator wires a search orchestrator over the given sources.
func NewOrchestrator(meta store.MetadataStore, vec vector.Client, engine *Engine, defaults Options) (*Orchestrator, error) {
	if meta == nil || vec == nil || engine == nil {
		return nil, cferrors.New(cferrors.ErrCodeInternal, "orchestrator requires a store, a vector client, and an engine", nil)
	}

	cache, err := lru.New[string, *store.CaseRecord](enrichCacheSize)
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeInternal, "create enrichment cache", err)
	}

	return &Orchestrator{
		meta:      meta,
		vec:       vec,
		extractor: NewFilterExtractor(),
		engine:    engine,
		cache:     cache,
		defaults:  defaults.normalize(),
		logger:    slog.Default().With("component", "orchestrator"),
	}, nil
}

// Options returns a copy of the configured default options for per-call
// adjustment.
func (o *Orchestrator) Options() Options {
	return o.defaults
}

// Search runs a hybrid search in the workspace.
func (o *Orchestrator) Search(ctx context.Context, workspaceID, query string, opts Options) ([]*Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, cferrors.New(cferrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}
	if strings.TrimSpace(workspaceID) == "" {
		return nil, cferrors.New(cferrors.ErrCodeWorkspaceEmpty, "workspace id must not be empty", nil)
	}
	opts = opts.normalize()

	var filters store.Filters
	if opts.Filters != nil {
		filters = *opts.Filters
	} else {
		filters = o.extractor.Extract(query)
	}
	filters.WorkspaceID = workspaceID

	vecHits, metaRecs := o.fanOut(ctx, workspaceID, query, filters, opts)

	results, err := o.fuseSafely(ctx, query, vecHits, metaRecs, filters, opts)
	if err != nil {
		o.logger.Warn("fusion failed, falling back to vector-only ranking", "err", err)
		results = vectorOnlyFallback(vecHits, opts)
	}

	o.enrich(ctx, results)
	return results, nil
}

// fanOut queries both sources in parallel. Branch failures are logged and
// produce empty slices so a degraded source never fails the search.
func (o *Orchestrator) fanOut(ctx context.Context, workspaceID, query string, filters store.Filters, opts Options) ([]*vector.Hit, []*store.CaseRecord) {
	var (
		vecHits  []*vector.Hit
		metaRecs []*store.CaseRecord
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := o.vec.SimilaritySearch(gctx, workspaceID, query, opts.VectorThreshold, opts.VectorTopK)
		if err != nil {
			o.logger.Warn("vector search failed, continuing without dense results", "err", err)
			return nil
		}
		vecHits = hits
		return nil
	})

	if !filters.Empty() {
		g.Go(func() error {
			recs, err := o.meta.Search(gctx, filters, opts.VectorTopK)
			if err != nil {
				o.logger.Warn("metadata search failed, continuing without structured results", "err", err)
				return nil
			}
			metaRecs = recs
			return nil
		})
	}

	_ = g.Wait() // branch errors are captured, never propagated

	return vecHits, metaRecs
}

// fuseSafely isolates the fusion pass: a panic inside scoring becomes an
// error so the orchestrator can fall back instead of crashing the server.
func (o *Orchestrator) fuseSafely(ctx context.Context, query string, vecHits []*vector.Hit, metaRecs []*store.CaseRecord, filters store.Filters, opts Options) (results []*Candidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = cferrors.FusionError(fmt.Sprintf("fusion panicked: %v", r), nil)
		}
	}()
	return o.engine.Fuse(ctx, query, vecHits, metaRecs, filters, opts)
}

// vectorOnlyFallback ranks vector hits by raw similarity when fusion is
// unavailable.
func vectorOnlyFallback(vecHits []*vector.Hit, opts Options) []*Candidate {
	results := make([]*Candidate, 0, len(vecHits))
	for _, hit := range vecHits {
		if hit.ID == "" {
			continue
		}
		score := clamp01(hit.Score)
		results = append(results, &Candidate{
			ID:            hit.ID,
			Title:         hit.Title,
			Text:          hit.Text,
			VectorScore:   score,
			CombinedScore: score,
			Source:        SourceVector,
			Metadata:      copyMetadata(hit.Metadata),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].CombinedScore != results[j].CombinedScore {
			return results[i].CombinedScore > results[j].CombinedScore
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results
}

// enrich fills missing structured display fields (court, year, citation,
// case type) from the metadata store, best effort. Lookups go through a
// small cache; a failed lookup leaves the candidate as-is.
func (o *Orchestrator) enrich(ctx context.Context, results []*Candidate) {
	for _, c := range results {
		if c.Metadata["court"] != "" && c.Metadata["year"] != "" &&
			c.Metadata["citation"] != "" && c.Metadata["case_type"] != "" {
			continue
		}

		rec, err := o.lookupRecord(ctx, c.ID)
		if err != nil {
			o.logger.Debug("enrichment lookup failed", "doc_id", c.ID, "err", err)
			continue
		}

		mergeMetadata(c, rec)
		if c.Title == "" {
			c.Title = rec.Title
		}
	}
}

func (o *Orchestrator) lookupRecord(ctx context.Context, docID string) (*store.CaseRecord, error) {
	if rec, ok := o.cache.Get(docID); ok {
		return rec, nil
	}
	rec, err := o.meta.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	o.cache.Add(docID, rec)
	return rec, nil
}

// Close releases both search sources.
func (o *Orchestrator) Close() error {
	vecErr := o.vec.Close()
	metaErr := o.meta.Close()
	if vecErr != nil {
		return vecErr
	}
	return metaErr
}
