package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/matsen/retractions/internal/record"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// selectRecordFields contains the standard field list for SELECT queries.
const selectRecordFields = `id, external_id, title, journal_title, journal_abbreviation,
	pub_year, pub_month, pub_day, publication_type,
	notice_id, notice_citation, retraction_of, run,
	authors_json, source_runs_json`

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			external_id TEXT,
			title TEXT NOT NULL,
			journal_title TEXT,
			journal_abbreviation TEXT,
			pub_year INTEGER NOT NULL,
			pub_month INTEGER NOT NULL,
			pub_day INTEGER NOT NULL,
			publication_type TEXT,
			notice_id TEXT,
			notice_citation TEXT,
			retraction_of TEXT,
			run TEXT,
			authors_json TEXT NOT NULL,
			source_runs_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_records_external_id ON records(external_id) WHERE external_id IS NOT NULL AND external_id != '';

		-- One row per (record, run) it was observed in
		CREATE TABLE IF NOT EXISTS record_runs (
			id TEXT NOT NULL,
			run TEXT NOT NULL,
			PRIMARY KEY (id, run)
		);

		CREATE INDEX IF NOT EXISTS idx_record_runs_run ON record_runs(run);

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			id,
			title,
			authors_text,
			journal
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL
// snapshot. Records without an identifier cannot be looked up and are not
// indexed. It returns the number of records indexed.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	recs, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	return d.Rebuild(recs)
}

// Rebuild replaces the index contents with recs in one transaction.
func (d *DB) Rebuild(recs []record.RetractionRecord) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"records", "record_runs", "records_fts"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return 0, fmt.Errorf("clearing %s table: %w", table, err)
		}
	}

	recStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO records (` + selectRecordFields + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing records insert: %w", err)
	}
	defer recStmt.Close()

	runStmt, err := tx.Prepare(`INSERT OR IGNORE INTO record_runs (id, run) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing runs insert: %w", err)
	}
	defer runStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO records_fts (id, title, authors_text, journal)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	indexed := 0
	for _, r := range recs {
		if r.Identifier == "" {
			continue
		}

		authorsJSON, err := json.Marshal(r.Authors)
		if err != nil {
			return 0, fmt.Errorf("marshaling authors for %s: %w", r.Identifier, err)
		}
		runsJSON, err := json.Marshal(r.SourceRuns)
		if err != nil {
			return 0, fmt.Errorf("marshaling runs for %s: %w", r.Identifier, err)
		}

		date := r.PublicationDate.Normalized()
		_, err = recStmt.Exec(
			r.Identifier, nullableStringValue(r.ExternalID), r.Title,
			nullableStringValue(r.JournalTitle), nullableStringValue(r.JournalAbbreviation),
			date.Year, date.Month, date.Day, nullableStringValue(r.PublicationType),
			nullableStringValue(r.RetractionNoticeIdentifier), nullableStringValue(r.RetractionNoticeCitation),
			nullableStringValue(r.RetractedPublicationIdentifier), nullableStringValue(r.Run),
			string(authorsJSON), string(runsJSON),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting record %s: %w", r.Identifier, err)
		}

		for _, run := range r.Provenance() {
			if _, err := runStmt.Exec(r.Identifier, run); err != nil {
				return 0, fmt.Errorf("inserting run %s for %s: %w", run, r.Identifier, err)
			}
		}

		journal := strings.TrimSpace(r.JournalTitle + " " + r.JournalAbbreviation)
		if _, err := ftsStmt.Exec(r.Identifier, r.Title, formatAuthorsText(r.Authors), journal); err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", r.Identifier, err)
		}
		indexed++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing index: %w", err)
	}
	return indexed, nil
}

// formatAuthorsText creates a searchable text representation of authors.
func formatAuthorsText(authors []record.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// GetByID retrieves a record by its identifier. It returns nil when absent.
func (d *DB) GetByID(id string) (*record.RetractionRecord, error) {
	row := d.db.QueryRow(`SELECT `+selectRecordFields+` FROM records WHERE id = ?`, id)
	return scanRecord(row)
}

// Query contains optional filters for Search. Filters combine with AND.
type Query struct {
	Text      string // Full-text search across title, authors and journal
	Author    string // Author names (prefix matching)
	Journal   string // Journal title or abbreviation (SQL LIKE, case-insensitive)
	YearFrom  int    // Minimum publication year (0 = no minimum)
	YearTo    int    // Maximum publication year (0 = no maximum)
	Run       string // Observed in this run
	HasNotice bool   // Linked to a retraction notice
}

// Search returns records matching all filters in q, ordered by identifier.
// A limit <= 0 returns every match.
func (d *DB) Search(q Query, limit int) ([]record.RetractionRecord, error) {
	var ftsTerms []string
	var args []any

	if q.Text != "" {
		ftsTerms = append(ftsTerms, prepareFTSQuery(q.Text))
	}
	if q.Author != "" {
		ftsTerms = append(ftsTerms, "authors_text:"+prepareAuthorQuery(q.Author))
	}

	var query string
	if len(ftsTerms) > 0 {
		query = `SELECT ` + selectRecordFields + `
			FROM records
			WHERE id IN (SELECT id FROM records_fts WHERE records_fts MATCH ?)`
		args = append(args, strings.Join(ftsTerms, " AND "))
	} else {
		query = `SELECT ` + selectRecordFields + ` FROM records WHERE 1=1`
	}

	// Unknown years are stored as the sentinel and must not satisfy YearTo.
	if q.YearFrom > 0 {
		query += " AND pub_year >= ? AND pub_year != ?"
		args = append(args, q.YearFrom, record.UnknownYear)
	}
	if q.YearTo > 0 {
		query += " AND pub_year <= ?"
		args = append(args, q.YearTo)
	}
	if q.Journal != "" {
		query += " AND (journal_title LIKE ? OR journal_abbreviation LIKE ?)"
		args = append(args, "%"+q.Journal+"%", "%"+q.Journal+"%")
	}
	if q.Run != "" {
		query += " AND id IN (SELECT id FROM record_runs WHERE run = ?)"
		args = append(args, q.Run)
	}
	if q.HasNotice {
		query += " AND ((notice_id IS NOT NULL AND notice_id != '') OR (notice_citation IS NOT NULL AND notice_citation != ''))"
	}

	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// prepareAuthorQuery prepares an author name for FTS5 search with prefix matching.
// It adds a wildcard (*) so that "Tim" matches "Timothy".
func prepareAuthorQuery(author string) string {
	parts := strings.Fields(author)
	if len(parts) == 0 {
		return ""
	}
	terms := make([]string, len(parts))
	for i, part := range parts {
		terms[i] = "\"" + strings.ReplaceAll(part, "\"", "\"\"") + "\"*"
	}
	return "(" + strings.Join(terms, " OR ") + ")"
}

// Count returns the total number of indexed records.
func (d *DB) Count() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}

// CountByRun returns how many indexed records each run observed.
func (d *DB) CountByRun() (map[string]int, error) {
	rows, err := d.db.Query("SELECT run, COUNT(*) FROM record_runs GROUP BY run")
	if err != nil {
		return nil, fmt.Errorf("counting by run: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var run string
		var n int
		if err := rows.Scan(&run, &n); err != nil {
			return nil, err
		}
		counts[run] = n
	}
	return counts, rows.Err()
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*record.RetractionRecord, error) {
	var r record.RetractionRecord
	var externalID, journalTitle, journalAbbrev, pubType sql.NullString
	var noticeID, noticeCitation, retractionOf, run sql.NullString
	var authorsJSON, runsJSON string

	err := s.Scan(
		&r.Identifier, &externalID, &r.Title, &journalTitle, &journalAbbrev,
		&r.PublicationDate.Year, &r.PublicationDate.Month, &r.PublicationDate.Day, &pubType,
		&noticeID, &noticeCitation, &retractionOf, &run,
		&authorsJSON, &runsJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	r.ExternalID = externalID.String
	r.JournalTitle = journalTitle.String
	r.JournalAbbreviation = journalAbbrev.String
	r.PublicationType = pubType.String
	r.RetractionNoticeIdentifier = noticeID.String
	r.RetractionNoticeCitation = noticeCitation.String
	r.RetractedPublicationIdentifier = retractionOf.String
	r.Run = run.String

	if err := json.Unmarshal([]byte(authorsJSON), &r.Authors); err != nil {
		return nil, fmt.Errorf("parsing authors JSON for %s: %w", r.Identifier, err)
	}
	if r.Authors == nil {
		r.Authors = []record.Author{}
	}
	if err := json.Unmarshal([]byte(runsJSON), &r.SourceRuns); err != nil {
		return nil, fmt.Errorf("parsing runs JSON for %s: %w", r.Identifier, err)
	}
	if len(r.SourceRuns) == 0 {
		r.SourceRuns = nil
	}

	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]record.RetractionRecord, error) {
	var recs []record.RetractionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if r != nil {
			recs = append(recs, *r)
		}
	}
	return recs, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~./") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}
