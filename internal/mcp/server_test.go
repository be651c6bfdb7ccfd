package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cferrors "github.com/nyayatech/casefind/internal/errors"
	"github.com/nyayatech/casefind/internal/search"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/internal/vector"
)

// stubVector serves canned hits for any query.
type stubVector struct {
	hits []*vector.Hit
}

func (s *stubVector) SimilaritySearch(_ context.Context, _, _ string, _ float64, _ int) ([]*vector.Hit, error) {
	return s.hits, nil
}

func (s *stubVector) Close() error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	meta, err := store.NewSQLiteStore("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close() })

	require.NoError(t, meta.Put(context.Background(),
		&store.CaseRecord{
			DocID:       "d1",
			WorkspaceID: "ws1",
			Title:       "Maneka Gandhi v. Union of India",
			Citation:    "AIR 1978 SC 597",
			Court:       "Supreme Court of India",
			Year:        1978,
			CaseType:    "writ petition",
			Text:        "Personal liberty under article 21; procedure established by law must be fair.",
		},
		&store.CaseRecord{
			DocID:       "d2",
			WorkspaceID: "ws1",
			Title:       "State of Maharashtra v. Doe",
			Court:       "Bombay High Court",
			Year:        2019,
			CaseType:    "criminal appeal",
			Text:        "Appeal against conviction.",
		},
	))

	vec := &stubVector{hits: []*vector.Hit{
		{ID: "d1", Title: "Maneka Gandhi v. Union of India", Text: "personal liberty", Score: 0.9},
	}}

	orch, err := search.NewOrchestrator(meta, vec, search.NewEngine(nil), search.DefaultOptions())
	require.NoError(t, err)

	srv, err := NewServer(orch, meta)
	require.NoError(t, err)
	return srv
}

func TestSearchCasesHandler(t *testing.T) {
	srv := newTestServer(t)

	_, out, err := srv.searchCasesHandler(context.Background(), nil, SearchCasesInput{
		Query:       "supreme court personal liberty",
		WorkspaceID: "ws1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	top := out.Results[0]
	assert.Equal(t, "d1", top.ID)
	assert.Equal(t, "hybrid", top.Source)
	assert.Equal(t, "Supreme Court of India", top.Court)
	assert.Equal(t, "1978", top.Year)
	assert.Greater(t, top.Score, 0.0)
}

func TestSearchCasesHandler_ExplicitFilters(t *testing.T) {
	srv := newTestServer(t)

	_, out, err := srv.searchCasesHandler(context.Background(), nil, SearchCasesInput{
		Query:       "conviction",
		WorkspaceID: "ws1",
		Court:       "Bombay High Court",
	})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)

	found := false
	for _, r := range out.Results {
		if r.ID == "d2" {
			found = true
			assert.Equal(t, "Bombay High Court", r.Court)
		}
	}
	assert.True(t, found, "explicit court filter must surface d2")
}

func TestSearchCasesHandler_Limit(t *testing.T) {
	srv := newTestServer(t)

	_, out, err := srv.searchCasesHandler(context.Background(), nil, SearchCasesInput{
		Query:       "supreme court liberty",
		WorkspaceID: "ws1",
		Limit:       1,
	})
	require.NoError(t, err)
	assert.Len(t, out.Results, 1)
}

func TestSearchCasesHandler_EmptyQuery(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.searchCasesHandler(context.Background(), nil, SearchCasesInput{
		Query:       "  ",
		WorkspaceID: "ws1",
	})
	require.Error(t, err)
	assert.Equal(t, cferrors.ErrCodeQueryEmpty, cferrors.CodeOf(err))
}

func TestGetCaseHandler(t *testing.T) {
	srv := newTestServer(t)

	_, out, err := srv.getCaseHandler(context.Background(), nil, GetCaseInput{DocID: "d1"})
	require.NoError(t, err)
	require.NotNil(t, out.Case)
	assert.Equal(t, "Maneka Gandhi v. Union of India", out.Case.Title)
}

func TestGetCaseHandler_Missing(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.getCaseHandler(context.Background(), nil, GetCaseInput{DocID: "absent"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetCaseHandler_EmptyID(t *testing.T) {
	srv := newTestServer(t)

	_, _, err := srv.getCaseHandler(context.Background(), nil, GetCaseInput{})
	require.Error(t, err)
	assert.Equal(t, cferrors.ErrCodeInvalidInput, cferrors.CodeOf(err))
}

func TestServe_UnknownTransport(t *testing.T) {
	srv := newTestServer(t)

	err := srv.Serve(context.Background(), "sse")
	assert.Error(t, err)
}
