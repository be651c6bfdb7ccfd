package store

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// BleveStore implements MetadataStore on a Bleve full-text index.
// Structured filters become per-field match/term queries; the residual
// fulltext filter matches across all indexed fields.
type BleveStore struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	lock   *DirLock
	closed bool
}

var _ MetadataStore = (*BleveStore)(nil)

// NewBleveStore opens (or creates) a Bleve-backed metadata store.
// An empty path creates an in-memory index for testing.
func NewBleveStore(path string, lock *DirLock) (*BleveStore, error) {
	var (
		idx bleve.Index
		err error
	)

	if path == "" {
		idx, err = bleve.NewMemOnly(caseIndexMapping())
	} else if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		idx, err = bleve.New(path, caseIndexMapping())
	} else {
		idx, err = bleve.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("open bleve index: %w", err)
	}

	return &BleveStore{index: idx, path: path, lock: lock}, nil
}

// caseIndexMapping maps record fields: workspace ids match exactly via the
// keyword analyzer, years are numeric for range filters, everything else is
// analyzed text.
func caseIndexMapping() mapping.IndexMapping {
	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	text := bleve.NewTextFieldMapping()
	year := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("workspace_id", exact)
	doc.AddFieldMappingsAt("year", year)
	for _, field := range []string{
		"title", "citation", "court", "case_type", "jurisdiction",
		"bench", "judge", "petitioner", "respondent", "keywords", "body",
	} {
		doc.AddFieldMappingsAt(field, text)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	return im
}

// Put indexes records in a single batch.
func (s *BleveStore) Put(ctx context.Context, records ...*CaseRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	batch := s.index.NewBatch()
	for _, rec := range records {
		if rec.DocID == "" {
			return fmt.Errorf("record without doc id")
		}
		if err := batch.Index(rec.DocID, caseDocument(rec)); err != nil {
			return fmt.Errorf("index %s: %w", rec.DocID, err)
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Search returns records matching the filter set, best match first.
func (s *BleveStore) Search(ctx context.Context, f Filters, limit int) ([]*CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 50
	}

	var clauses []query.Query

	if f.WorkspaceID != "" {
		tq := bleve.NewTermQuery(f.WorkspaceID)
		tq.SetField("workspace_id")
		clauses = append(clauses, tq)
	}
	if f.Court != "" {
		clauses = append(clauses, fieldMatch("court", f.Court))
	}
	if f.Year != 0 {
		y := float64(f.Year)
		clauses = append(clauses, yearRange(&y, &y))
	} else {
		var from, to *float64
		if f.YearFrom != 0 {
			v := float64(f.YearFrom)
			from = &v
		}
		if f.YearTo != 0 {
			v := float64(f.YearTo)
			to = &v
		}
		if from != nil || to != nil {
			clauses = append(clauses, yearRange(from, to))
		}
	}
	if f.CaseType != "" {
		clauses = append(clauses, fieldMatch("case_type", f.CaseType))
	}
	if f.Jurisdiction != "" {
		clauses = append(clauses, fieldMatch("jurisdiction", f.Jurisdiction))
	}
	if f.Bench != "" {
		clauses = append(clauses, fieldMatch("bench", f.Bench))
	}
	if f.Judge != "" {
		clauses = append(clauses, fieldMatch("judge", f.Judge))
	}
	if f.Citation != "" {
		clauses = append(clauses, fieldMatch("citation", f.Citation))
	}
	for _, kw := range f.Keywords {
		clauses = append(clauses, fieldMatch("keywords", kw))
	}
	if f.Fulltext != "" {
		clauses = append(clauses, bleve.NewMatchQuery(f.Fulltext))
	}

	var q query.Query
	if len(clauses) == 0 {
		q = bleve.NewMatchAllQuery()
	} else {
		q = bleve.NewConjunctionQuery(clauses...)
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"*"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve search: %w", err)
	}

	records := make([]*CaseRecord, 0, len(res.Hits))
	for _, hit := range res.Hits {
		records = append(records, recordFromFields(hit.ID, hit.Fields))
	}
	return records, nil
}

// Get fetches a single record by doc id.
func (s *BleveStore) Get(ctx context.Context, docID string) (*CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	q := bleve.NewDocIDQuery([]string{docID})
	req := bleve.NewSearchRequestOptions(q, 1, 0, false)
	req.Fields = []string{"*"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve get %s: %w", docID, err)
	}
	if len(res.Hits) == 0 {
		return nil, ErrNotFound
	}
	return recordFromFields(res.Hits[0].ID, res.Hits[0].Fields), nil
}

// Close closes the index and releases the directory lock.
func (s *BleveStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.index.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// caseDocument flattens a record into the indexed shape.
func caseDocument(rec *CaseRecord) map[string]any {
	return map[string]any{
		"workspace_id": rec.WorkspaceID,
		"title":        rec.Title,
		"citation":     rec.Citation,
		"court":        rec.Court,
		"year":         rec.Year,
		"case_type":    rec.CaseType,
		"jurisdiction": rec.Jurisdiction,
		"bench":        rec.Bench,
		"judge":        rec.Judge,
		"petitioner":   rec.Petitioner,
		"respondent":   rec.Respondent,
		"keywords":     rec.Keywords,
		"body":         rec.Text,
	}
}

// recordFromFields rebuilds a record from a hit's stored fields.
func recordFromFields(id string, fields map[string]any) *CaseRecord {
	rec := &CaseRecord{
		DocID:        id,
		WorkspaceID:  fieldString(fields, "workspace_id"),
		Title:        fieldString(fields, "title"),
		Citation:     fieldString(fields, "citation"),
		Court:        fieldString(fields, "court"),
		CaseType:     fieldString(fields, "case_type"),
		Jurisdiction: fieldString(fields, "jurisdiction"),
		Bench:        fieldString(fields, "bench"),
		Judge:        fieldString(fields, "judge"),
		Petitioner:   fieldString(fields, "petitioner"),
		Respondent:   fieldString(fields, "respondent"),
		Keywords:     fieldStrings(fields, "keywords"),
		Text:         fieldString(fields, "body"),
	}
	if y, ok := fields["year"].(float64); ok {
		rec.Year = int(y)
	}
	return rec
}

func fieldString(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func fieldStrings(fields map[string]any, key string) []string {
	switch v := fields[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// fieldMatch builds a match query requiring all analyzed terms.
func fieldMatch(field, text string) query.Query {
	mq := bleve.NewMatchQuery(text)
	mq.SetField(field)
	mq.SetOperator(query.MatchQueryOperatorAnd)
	return mq
}

func yearRange(from, to *float64) query.Query {
	inclusive := true
	nrq := bleve.NewNumericRangeInclusiveQuery(from, to, &inclusive, &inclusive)
	nrq.SetField("year")
	return nrq
}
