package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRecords is a small corpus exercised against both backends.
func testRecords() []*CaseRecord {
	return []*CaseRecord{
		{
			DocID:        "d1",
			WorkspaceID:  "ws1",
			Title:        "Kesavananda Bharati v. State of Kerala",
			Citation:     "AIR 1973 SC 1461",
			Court:        "Supreme Court of India",
			Year:         1973,
			CaseType:     "writ petition",
			Jurisdiction: "constitutional",
			Bench:        "constitution bench",
			Petitioner:   "Kesavananda Bharati",
			Respondent:   "State of Kerala",
			Keywords:     []string{"basic structure", "amendment"},
			Text:         "The basic structure doctrine limits the amending power of Parliament.",
		},
		{
			DocID:       "d2",
			WorkspaceID: "ws1",
			Title:       "Maneka Gandhi v. Union of India",
			Citation:    "AIR 1978 SC 597",
			Court:       "Supreme Court of India",
			Year:        1978,
			CaseType:    "writ petition",
			Keywords:    []string{"personal liberty", "passport"},
			Text:        "Procedure established by law must be fair, just and reasonable.",
		},
		{
			DocID:       "d3",
			WorkspaceID: "ws1",
			Title:       "State of Maharashtra v. Doe",
			Citation:    "2019 BHC 112",
			Court:       "Bombay High Court",
			Year:        2019,
			CaseType:    "criminal appeal",
			Keywords:    []string{"evidence"},
			Text:        "Appeal against conviction under the Evidence Act.",
		},
		{
			DocID:       "d4",
			WorkspaceID: "ws2",
			Title:       "Roe v. Registrar",
			Court:       "Delhi High Court",
			Year:        2021,
			CaseType:    "civil appeal",
			Text:        "Registration dispute over trademark assignment.",
		},
	}
}

// openBackends returns a fresh in-memory store per backend.
func openBackends(t *testing.T) map[string]MetadataStore {
	t.Helper()

	sqlite, err := NewSQLiteStore("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	blv, err := NewBleveStore("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = blv.Close() })

	return map[string]MetadataStore{"sqlite": sqlite, "bleve": blv}
}

func seed(t *testing.T, s MetadataStore) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), testRecords()...))
}

func TestStore_PutGetRoundtrip(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			rec, err := s.Get(context.Background(), "d1")
			require.NoError(t, err)

			assert.Equal(t, "Kesavananda Bharati v. State of Kerala", rec.Title)
			assert.Equal(t, "Supreme Court of India", rec.Court)
			assert.Equal(t, 1973, rec.Year)
			assert.Equal(t, []string{"basic structure", "amendment"}, rec.Keywords)
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			_, err := s.Get(context.Background(), "absent")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_SearchByCourt(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recs, err := s.Search(context.Background(), Filters{
				WorkspaceID: "ws1",
				Court:       "Supreme Court",
			}, 10)
			require.NoError(t, err)
			require.Len(t, recs, 2)
			for _, r := range recs {
				assert.Equal(t, "Supreme Court of India", r.Court)
			}
		})
	}
}

func TestStore_SearchByYearRange(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recs, err := s.Search(context.Background(), Filters{
				WorkspaceID: "ws1",
				YearFrom:    1975,
				YearTo:      2020,
			}, 10)
			require.NoError(t, err)
			require.Len(t, recs, 2)

			ids := []string{recs[0].DocID, recs[1].DocID}
			assert.ElementsMatch(t, []string{"d2", "d3"}, ids)
		})
	}
}

func TestStore_SearchExactYear(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recs, err := s.Search(context.Background(), Filters{Year: 1973}, 10)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "d1", recs[0].DocID)
		})
	}
}

func TestStore_SearchFulltextResidual(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recs, err := s.Search(context.Background(), Filters{Fulltext: "passport"}, 10)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "d2", recs[0].DocID)
		})
	}
}

func TestStore_SearchWorkspaceScoping(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recs, err := s.Search(context.Background(), Filters{WorkspaceID: "ws2"}, 10)
			require.NoError(t, err)
			require.Len(t, recs, 1)
			assert.Equal(t, "d4", recs[0].DocID)
		})
	}
}

func TestStore_SearchLimit(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			recs, err := s.Search(context.Background(), Filters{WorkspaceID: "ws1"}, 2)
			require.NoError(t, err)
			assert.Len(t, recs, 2)
		})
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			seed(t, s)

			updated := *testRecords()[0]
			updated.Title = "Kesavananda Bharati (review)"
			require.NoError(t, s.Put(context.Background(), &updated))

			rec, err := s.Get(context.Background(), "d1")
			require.NoError(t, err)
			assert.Equal(t, "Kesavananda Bharati (review)", rec.Title)
		})
	}
}

func TestFilters_Empty(t *testing.T) {
	assert.True(t, Filters{}.Empty())
	assert.True(t, Filters{WorkspaceID: "ws1"}.Empty(), "workspace alone does not narrow")
	assert.False(t, Filters{Court: "Supreme Court"}.Empty())
	assert.False(t, Filters{Fulltext: "liberty"}.Empty())
	assert.False(t, Filters{YearFrom: 2001}.Empty())
}

func TestDirLock_Exclusive(t *testing.T) {
	dir := t.TempDir()

	l1 := NewDirLock(dir)
	got, err := l1.TryLock()
	require.NoError(t, err)
	require.True(t, got)

	l2 := NewDirLock(dir)
	got2, err := l2.TryLock()
	require.NoError(t, err)
	assert.False(t, got2, "second process must not acquire the lock")

	require.NoError(t, l1.Unlock())

	got3, err := l2.TryLock()
	require.NoError(t, err)
	assert.True(t, got3)
	require.NoError(t, l2.Unlock())
}
