package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// SQLiteStore implements MetadataStore on a relational SQLite schema.
// Structured filters map to WHERE clauses; the residual fulltext filter
// uses case-insensitive LIKE matching over title, body, and keywords.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	lock   *DirLock
	closed bool
}

var _ MetadataStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite-backed metadata store.
// An empty path creates an in-memory store for testing. The lock, when
// non-nil, is released on Close.
func NewSQLiteStore(path string, lock *DirLock) (*SQLiteStore, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer prevents lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path, lock: lock}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS cases (
		doc_id       TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		title        TEXT NOT NULL DEFAULT '',
		citation     TEXT NOT NULL DEFAULT '',
		court        TEXT NOT NULL DEFAULT '',
		year         INTEGER NOT NULL DEFAULT 0,
		case_type    TEXT NOT NULL DEFAULT '',
		jurisdiction TEXT NOT NULL DEFAULT '',
		bench        TEXT NOT NULL DEFAULT '',
		judge        TEXT NOT NULL DEFAULT '',
		petitioner   TEXT NOT NULL DEFAULT '',
		respondent   TEXT NOT NULL DEFAULT '',
		keywords     TEXT NOT NULL DEFAULT '[]',
		body         TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_cases_workspace ON cases(workspace_id);
	CREATE INDEX IF NOT EXISTS idx_cases_court_year ON cases(court, year);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put inserts or replaces records.
func (s *SQLiteStore) Put(ctx context.Context, records ...*CaseRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cases (
			doc_id, workspace_id, title, citation, court, year,
			case_type, jurisdiction, bench, judge, petitioner, respondent,
			keywords, body
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			workspace_id = excluded.workspace_id,
			title        = excluded.title,
			citation     = excluded.citation,
			court        = excluded.court,
			year         = excluded.year,
			case_type    = excluded.case_type,
			jurisdiction = excluded.jurisdiction,
			bench        = excluded.bench,
			judge        = excluded.judge,
			petitioner   = excluded.petitioner,
			respondent   = excluded.respondent,
			keywords     = excluded.keywords,
			body         = excluded.body`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec.DocID == "" {
			return fmt.Errorf("record without doc id")
		}
		keywords, err := json.Marshal(rec.Keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords for %s: %w", rec.DocID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			rec.DocID, rec.WorkspaceID, rec.Title, rec.Citation, rec.Court, rec.Year,
			rec.CaseType, rec.Jurisdiction, rec.Bench, rec.Judge, rec.Petitioner, rec.Respondent,
			string(keywords), rec.Text,
		); err != nil {
			return fmt.Errorf("upsert %s: %w", rec.DocID, err)
		}
	}

	return tx.Commit()
}

// Search returns records matching the filter set, newest first.
func (s *SQLiteStore) Search(ctx context.Context, f Filters, limit int) ([]*CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		limit = 50
	}

	var (
		where []string
		args  []any
	)

	if f.WorkspaceID != "" {
		where = append(where, "workspace_id = ?")
		args = append(args, f.WorkspaceID)
	}
	if f.Court != "" {
		where = append(where, "lower(court) LIKE ?")
		args = append(args, contains(f.Court))
	}
	if f.Year != 0 {
		where = append(where, "year = ?")
		args = append(args, f.Year)
	}
	if f.YearFrom != 0 {
		where = append(where, "year >= ?")
		args = append(args, f.YearFrom)
	}
	if f.YearTo != 0 {
		where = append(where, "year <= ?")
		args = append(args, f.YearTo)
	}
	if f.CaseType != "" {
		where = append(where, "lower(case_type) LIKE ?")
		args = append(args, contains(f.CaseType))
	}
	if f.Jurisdiction != "" {
		where = append(where, "lower(jurisdiction) = ?")
		args = append(args, strings.ToLower(f.Jurisdiction))
	}
	if f.Bench != "" {
		where = append(where, "lower(bench) LIKE ?")
		args = append(args, contains(f.Bench))
	}
	if f.Judge != "" {
		where = append(where, "lower(judge) LIKE ?")
		args = append(args, contains(f.Judge))
	}
	if f.Citation != "" {
		where = append(where, "lower(citation) LIKE ?")
		args = append(args, contains(f.Citation))
	}
	for _, kw := range f.Keywords {
		where = append(where, "lower(keywords) LIKE ?")
		args = append(args, contains(kw))
	}
	if ft := strings.TrimSpace(f.Fulltext); ft != "" {
		where = append(where, "(lower(title) LIKE ? OR lower(body) LIKE ? OR lower(keywords) LIKE ?)")
		p := contains(ft)
		args = append(args, p, p, p)
	}

	q := `SELECT doc_id, workspace_id, title, citation, court, year,
		case_type, jurisdiction, bench, judge, petitioner, respondent,
		keywords, body FROM cases`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY year DESC, doc_id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search cases: %w", err)
	}
	defer rows.Close()

	var records []*CaseRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get fetches a single record by doc id.
func (s *SQLiteStore) Get(ctx context.Context, docID string) (*CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}

	row := s.db.QueryRowContext(ctx, `SELECT doc_id, workspace_id, title, citation, court, year,
		case_type, jurisdiction, bench, judge, petitioner, respondent,
		keywords, body FROM cases WHERE doc_id = ?`, docID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get case %s: %w", docID, err)
	}
	return rec, nil
}

// Close closes the database and releases the directory lock.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.db.Close()
	if s.lock != nil {
		if unlockErr := s.lock.Unlock(); err == nil {
			err = unlockErr
		}
	}
	return err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*CaseRecord, error) {
	var (
		rec      CaseRecord
		keywords string
	)
	if err := sc.Scan(
		&rec.DocID, &rec.WorkspaceID, &rec.Title, &rec.Citation, &rec.Court, &rec.Year,
		&rec.CaseType, &rec.Jurisdiction, &rec.Bench, &rec.Judge, &rec.Petitioner, &rec.Respondent,
		&keywords, &rec.Text,
	); err != nil {
		return nil, err
	}
	if keywords != "" && keywords != "[]" {
		if err := json.Unmarshal([]byte(keywords), &rec.Keywords); err != nil {
			// Keywords are advisory; a corrupt column must not hide the record.
			rec.Keywords = nil
		}
	}
	return &rec, nil
}

func contains(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
