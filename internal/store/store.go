// Package store provides the structured metadata source for case-law search.
// Two interchangeable backends are supported: SQLite (default) and Bleve.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	cferrors "github.com/nyayatech/casefind/internal/errors"
)

// ErrNotFound is returned by Get when no record matches the doc id.
var ErrNotFound = cferrors.New(cferrors.ErrCodeRecordMissing, "record not found", nil)

// Filters is the structured filter set applied to the metadata source.
// It is produced per query, consumed once, and never persisted.
type Filters struct {
	WorkspaceID  string
	Court        string
	Year         int
	YearFrom     int
	YearTo       int
	CaseType     string
	Jurisdiction string
	Bench        string
	Judge        string
	Citation     string
	Keywords     []string
	// Fulltext is the residual free-text left after categorical extraction,
	// matched against title, body, and keywords.
	Fulltext string
}

// Empty reports whether no filter beyond the workspace scope is set.
// An empty filter set means the metadata branch has nothing to narrow by
// and is skipped entirely.
func (f Filters) Empty() bool {
	return f.Court == "" &&
		f.Year == 0 &&
		f.YearFrom == 0 &&
		f.YearTo == 0 &&
		f.CaseType == "" &&
		f.Jurisdiction == "" &&
		f.Bench == "" &&
		f.Judge == "" &&
		f.Citation == "" &&
		len(f.Keywords) == 0 &&
		strings.TrimSpace(f.Fulltext) == ""
}

// CaseRecord is one case-law document's structured metadata.
type CaseRecord struct {
	DocID        string   `json:"doc_id"`
	WorkspaceID  string   `json:"workspace_id"`
	Title        string   `json:"title"`
	Citation     string   `json:"citation"`
	Court        string   `json:"court"`
	Year         int      `json:"year"`
	CaseType     string   `json:"case_type"`
	Jurisdiction string   `json:"jurisdiction"`
	Bench        string   `json:"bench"`
	Judge        string   `json:"judge"`
	Petitioner   string   `json:"petitioner"`
	Respondent   string   `json:"respondent"`
	Keywords     []string `json:"keywords"`
	Text         string   `json:"text"`
}

// MetadataStore is the structured metadata source consumed by search.
type MetadataStore interface {
	// Search returns records matching the filter set, up to limit.
	Search(ctx context.Context, f Filters, limit int) ([]*CaseRecord, error)

	// Get fetches a single record by doc id. Returns ErrNotFound when absent.
	Get(ctx context.Context, docID string) (*CaseRecord, error)

	// Put inserts or replaces records.
	Put(ctx context.Context, records ...*CaseRecord) error

	// Close releases backend resources and the data-directory lock.
	Close() error
}

// Open creates or opens a metadata store in dir using the named backend
// ("sqlite" or "bleve"). The data directory is locked against concurrent
// writers for the lifetime of the store.
func Open(backend, dir string) (MetadataStore, error) {
	lock := NewDirLock(dir)
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, cferrors.New(cferrors.ErrCodeStoreIO, "acquire data dir lock", err)
	}
	if !acquired {
		return nil, cferrors.New(cferrors.ErrCodeStoreLocked,
			fmt.Sprintf("data directory %s is in use by another process", dir), nil)
	}

	var s MetadataStore
	switch backend {
	case "sqlite", "":
		s, err = NewSQLiteStore(filepath.Join(dir, "cases.db"), lock)
	case "bleve":
		s, err = NewBleveStore(filepath.Join(dir, "cases.bleve"), lock)
	default:
		err = cferrors.ConfigError(fmt.Sprintf("unknown metadata backend %q", backend), nil)
	}
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return s, nil
}
