package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/nyayatech/casefind/internal/errors"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/internal/vector"
)

// fakeVector is a scriptable vector source.
type fakeVector struct {
	hits         []*vector.Hit
	err          error
	gotNamespace string
	gotQuery     string
	calls        int
}

func (f *fakeVector) SimilaritySearch(_ context.Context, namespace, query string, _ float64, _ int) ([]*vector.Hit, error) {
	f.calls++
	f.gotNamespace = namespace
	f.gotQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func (f *fakeVector) Close() error { return nil }

// fakeStore is a scriptable metadata source.
type fakeStore struct {
	recs        []*store.CaseRecord
	byID        map[string]*store.CaseRecord
	searchErr   error
	gotFilters  store.Filters
	searchCalls int
	getCalls    int
}

func (f *fakeStore) Search(_ context.Context, filters store.Filters, _ int) ([]*store.CaseRecord, error) {
	f.searchCalls++
	f.gotFilters = filters
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.recs, nil
}

func (f *fakeStore) Get(_ context.Context, docID string) (*store.CaseRecord, error) {
	f.getCalls++
	if rec, ok := f.byID[docID]; ok {
		return rec, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) Put(_ context.Context, _ ...*store.CaseRecord) error { return nil }
func (f *fakeStore) Close() error                                        { return nil }

func newTestOrchestrator(t *testing.T, vec *fakeVector, meta *fakeStore) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(meta, vec, NewEngine(nil), defaultTestOptions())
	require.NoError(t, err)
	return orch
}

func TestOrchestrator_RejectsEmptyQuery(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeVector{}, &fakeStore{})

	_, err := orch.Search(context.Background(), "ws1", "   ", Options{})
	require.Error(t, err)
	assert.Equal(t, cferrors.ErrCodeQueryEmpty, cferrors.CodeOf(err))
}

func TestOrchestrator_RejectsEmptyWorkspace(t *testing.T) {
	orch := newTestOrchestrator(t, &fakeVector{}, &fakeStore{})

	_, err := orch.Search(context.Background(), "", "liberty", Options{})
	require.Error(t, err)
	assert.Equal(t, cferrors.ErrCodeWorkspaceEmpty, cferrors.CodeOf(err))
}

func TestOrchestrator_SkipsMetadataWhenNoFilters(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{{ID: "d1", Title: "Case", Score: 0.8}}}
	meta := &fakeStore{}
	orch := newTestOrchestrator(t, vec, meta)

	// "law" yields no structured filters and a residual too short for
	// a fulltext match, so only the vector branch runs.
	results, err := orch.Search(context.Background(), "ws1", "law", Options{})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 0, meta.searchCalls)
	assert.Equal(t, "ws1", vec.gotNamespace)
	assert.Equal(t, "law", vec.gotQuery)
}

func TestOrchestrator_HybridFlow(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{
		{ID: "d1", Title: "vector title", Score: 0.8},
	}}
	meta := &fakeStore{recs: []*store.CaseRecord{
		{DocID: "d1", Title: "Maneka Gandhi v. Union of India", Court: "Supreme Court of India", Year: 1978},
		{DocID: "d2", Title: "A.K. Gopalan v. State of Madras", Court: "Supreme Court of India", Year: 1950},
	}}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "supreme court personal liberty", Options{})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, 1, meta.searchCalls)
	assert.Equal(t, "ws1", meta.gotFilters.WorkspaceID)
	assert.Equal(t, "Supreme Court of India", meta.gotFilters.Court)

	assert.Equal(t, "d1", results[0].ID)
	assert.Equal(t, SourceHybrid, results[0].Source)
	assert.Equal(t, SourceMetadata, results[1].Source)
}

func TestOrchestrator_VectorFailureDegradesToMetadata(t *testing.T) {
	vec := &fakeVector{err: assert.AnError}
	meta := &fakeStore{recs: []*store.CaseRecord{
		{DocID: "d1", Title: "Some case", Court: "Bombay High Court"},
	}}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "bombay high court bail", Options{})
	require.NoError(t, err, "a dead vector source must not fail the search")

	require.Len(t, results, 1)
	assert.Equal(t, SourceMetadata, results[0].Source)
}

func TestOrchestrator_MetadataFailureDegradesToVector(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{{ID: "d1", Title: "Case", Score: 0.7}}}
	meta := &fakeStore{searchErr: assert.AnError}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "supreme court liberty", Options{})
	require.NoError(t, err, "a dead metadata source must not fail the search")

	require.Len(t, results, 1)
	assert.Equal(t, "d1", results[0].ID)
}

func TestOrchestrator_AllSourcesFailedReturnsEmpty(t *testing.T) {
	vec := &fakeVector{err: assert.AnError}
	meta := &fakeStore{searchErr: assert.AnError}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "supreme court liberty", Options{})
	require.NoError(t, err, "source failures degrade, they never surface")
	assert.Empty(t, results)
}

func TestOrchestrator_VectorFailureWithoutMetadataBranch(t *testing.T) {
	vec := &fakeVector{err: assert.AnError}
	orch := newTestOrchestrator(t, vec, &fakeStore{})

	results, err := orch.Search(context.Background(), "ws1", "law", Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOrchestrator_ExplicitFiltersBypassExtraction(t *testing.T) {
	vec := &fakeVector{}
	meta := &fakeStore{}
	orch := newTestOrchestrator(t, vec, meta)

	opts := Options{Filters: &store.Filters{Court: "Delhi High Court"}}
	_, err := orch.Search(context.Background(), "ws1", "supreme court liberty", opts)
	require.NoError(t, err)

	assert.Equal(t, "Delhi High Court", meta.gotFilters.Court, "extraction must not run")
	assert.Equal(t, "ws1", meta.gotFilters.WorkspaceID)
}

func TestOrchestrator_EnrichmentFillsMissingFields(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{{ID: "d1", Title: "Case", Score: 0.8}}}
	meta := &fakeStore{byID: map[string]*store.CaseRecord{
		"d1": {DocID: "d1", Title: "Case", Court: "Supreme Court of India", Year: 1973, Citation: "AIR 1973 SC 1461"},
	}}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "law", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "Supreme Court of India", results[0].Metadata["court"])
	assert.Equal(t, "1973", results[0].Metadata["year"])
	assert.Equal(t, "AIR 1973 SC 1461", results[0].Metadata["citation"])
}

func TestOrchestrator_EnrichmentFillsCitationDespiteCourtAndYear(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{{
		ID:       "d1",
		Title:    "Case",
		Score:    0.8,
		Metadata: map[string]string{"court": "Supreme Court of India", "year": "1973"},
	}}}
	meta := &fakeStore{byID: map[string]*store.CaseRecord{
		"d1": {
			DocID:    "d1",
			Title:    "Case",
			Court:    "Supreme Court of India",
			Year:     1973,
			Citation: "AIR 1973 SC 1461",
			CaseType: "writ petition",
		},
	}}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "law", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "AIR 1973 SC 1461", results[0].Metadata["citation"])
	assert.Equal(t, "writ petition", results[0].Metadata["case_type"])
}

func TestOrchestrator_EnrichmentUsesCache(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{{ID: "d1", Title: "Case", Score: 0.8}}}
	meta := &fakeStore{byID: map[string]*store.CaseRecord{
		"d1": {DocID: "d1", Title: "Case", Court: "Supreme Court of India", Year: 1973},
	}}
	orch := newTestOrchestrator(t, vec, meta)

	for i := 0; i < 3; i++ {
		_, err := orch.Search(context.Background(), "ws1", "law", Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, meta.getCalls, "repeat lookups come from the cache")
}

func TestOrchestrator_EnrichmentFailureIsBestEffort(t *testing.T) {
	vec := &fakeVector{hits: []*vector.Hit{{ID: "ghost", Title: "Case", Score: 0.8}}}
	meta := &fakeStore{}
	orch := newTestOrchestrator(t, vec, meta)

	results, err := orch.Search(context.Background(), "ws1", "law", Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Metadata["court"])
}
