// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store implements the staging store: the process-local relational
// store that holds one run's ingested links and DOIs, the cache rows
// merged in from disk, and the classification results the probers produce.
//
// It is backed by an in-memory SQLite database (modernc.org/sqlite, pure
// Go, no CGO) rather than a hand-rolled set of maps, so that the per-file
// aggregation views read naturally as SQL joins.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// LinkRecord is one hyperlink found in one source file.
type LinkRecord struct {
	FilePath      string
	Hostname      string
	URL           string
	NormalizedURL string
	LinkText      string
}

// DoiRecord is one DOI found in one source file.
type DoiRecord struct {
	FilePath    string
	DOI         string
	Description string
}

// Store is the staging store for a single engine run. It is not safe for
// concurrent use except through its exported methods, which serialize all
// mutation behind a single mutex: the store has no multi-writer support,
// matching the concurrency model's single-writer requirement.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time

	// classifiedThisRun enforces "at most one of {ValidUrl(this run),
	// Error, Redirect, Exception} per normalized URL": the first mark_*
	// call for a URL in a run wins, later calls for the same URL are
	// no-ops.
	classifiedThisRun map[string]bool
}

// New opens a fresh in-memory staging store with its schema created.
func New() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer: SQLite in-memory has one connection anyway

	s := &Store{
		db:                db,
		now:               time.Now,
		classifiedThisRun: make(map[string]bool),
	}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE queue (
			filePath text, doi text, hostname text, url text,
			normalizedUrl text, linktext text)`,
		`CREATE TABLE queue_doi (
			filePath text, doi text, description text)`,
		`CREATE TABLE errors (normalizedUrl text, error integer)`,
		`CREATE TABLE fileAccessErrors (filePath text, problem text)`,
		`CREATE TABLE permanentRedirects (normalizedUrl text, error integer)`,
		`CREATE TABLE exceptions (normalizedUrl text, reason text)`,
		`CREATE TABLE IF NOT EXISTS validUrls (normalizedUrl text, lastValid integer)`,
		`CREATE TABLE IF NOT EXISTS validDois (doi text, lastSeen integer)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// Reinitialize drops and recreates every table so that a second call to
// Engine.Check on the same Store does not leak counters or classifications
// from a prior run. validUrls/validDois are dropped too: the caller reloads
// them from the disk cache immediately afterwards, which is where the prior
// run's successes already live after SnapshotToDisk.
func (s *Store) Reinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropAndRecreate := []struct{ drop, create string }{
		{"DROP TABLE queue", `CREATE TABLE queue (
			filePath text, doi text, hostname text, url text,
			normalizedUrl text, linktext text)`},
		{"DROP TABLE queue_doi", `CREATE TABLE queue_doi (
			filePath text, doi text, description text)`},
		{"DROP TABLE errors", `CREATE TABLE errors (normalizedUrl text, error integer)`},
		{"DROP TABLE fileAccessErrors", `CREATE TABLE fileAccessErrors (filePath text, problem text)`},
		{"DROP TABLE permanentRedirects", `CREATE TABLE permanentRedirects (normalizedUrl text, error integer)`},
		{"DROP TABLE exceptions", `CREATE TABLE exceptions (normalizedUrl text, reason text)`},
		{"DROP TABLE validUrls", `CREATE TABLE validUrls (normalizedUrl text, lastValid integer)`},
		{"DROP TABLE validDois", `CREATE TABLE validDois (doi text, lastSeen integer)`},
		{"DROP VIEW IF EXISTS v_errorCountByFile", `SELECT 1 WHERE 0`},
		{"DROP VIEW IF EXISTS v_redirectCountByFile", `SELECT 1 WHERE 0`},
		{"DROP VIEW IF EXISTS v_exceptionCountByFile", `SELECT 1 WHERE 0`},
		{"DROP VIEW IF EXISTS v_errorsByFile", `SELECT 1 WHERE 0`},
		{"DROP VIEW IF EXISTS v_redirectsByFile", `SELECT 1 WHERE 0`},
		{"DROP VIEW IF EXISTS v_exceptionsByFile", `SELECT 1 WHERE 0`},
	}
	for _, step := range dropAndRecreate {
		if _, err := s.db.Exec(step.drop); err != nil {
			return fmt.Errorf("reinitialize store: %w", err)
		}
		if step.create != `SELECT 1 WHERE 0` {
			if _, err := s.db.Exec(step.create); err != nil {
				return fmt.Errorf("reinitialize store: %w", err)
			}
		}
	}
	s.classifiedThisRun = make(map[string]bool)
	return nil
}

// Close releases the in-memory database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertLinks bulk-inserts ingested hyperlinks. Idempotent in the sense
// that it is safe to call multiple times across files; deduplication
// happens at probe time via DistinctURLsToProbe.
func (s *Store) InsertLinks(batch []LinkRecord) error {
	if len(batch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO queue
		(filePath, hostname, url, normalizedUrl, linktext)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range batch {
		if _, err := stmt.Exec(rec.FilePath, rec.Hostname, rec.URL, rec.NormalizedURL, rec.LinkText); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertDOIs bulk-inserts ingested DOIs.
func (s *Store) InsertDOIs(batch []DoiRecord) error {
	if len(batch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO queue_doi
		(filePath, doi, description) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, rec := range batch {
		if _, err := stmt.Exec(rec.FilePath, rec.DOI, rec.Description); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertFileAccessError records that a source file could not be read.
// Never fatal; the caller continues with the remaining files.
func (s *Store) InsertFileAccessError(filePath, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT INTO fileAccessErrors VALUES (?, ?)`, filePath, reason)
	return err
}

// BuildIndices creates the indices used by the probe and report phases.
// Called after bulk insert and before probing, never incrementally, so
// that insert throughput is not paid for with per-row index maintenance.
func (s *Store) BuildIndices() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	statements := []string{
		`CREATE INDEX IF NOT EXISTS index_timestamp ON validUrls (lastValid)`,
		`CREATE INDEX IF NOT EXISTS index_normalized_url ON queue (normalizedUrl)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS index_valid_doi ON validDois (doi)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("build indices: %w", err)
		}
	}
	return nil
}

// BuildViews creates the per-file aggregation views used by the reporter.
// Called once, after the probe phase, before the report is rendered.
func (s *Store) BuildViews() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	statements := []string{
		`CREATE VIEW IF NOT EXISTS v_errorCountByFile AS
			SELECT COUNT(*) AS numErrors, filePath FROM queue
			WHERE normalizedUrl IN (SELECT normalizedUrl FROM errors)
			GROUP BY filePath`,
		`CREATE VIEW IF NOT EXISTS v_redirectCountByFile AS
			SELECT COUNT(*) AS numRedirects, filePath FROM queue
			WHERE normalizedUrl IN (SELECT normalizedUrl FROM permanentRedirects)
			GROUP BY filePath`,
		`CREATE VIEW IF NOT EXISTS v_exceptionCountByFile AS
			SELECT COUNT(*) AS numExceptions, filePath FROM queue
			WHERE normalizedUrl IN (SELECT normalizedUrl FROM exceptions)
			GROUP BY filePath`,
		`CREATE VIEW IF NOT EXISTS v_errorsByFile AS
			SELECT queue.filePath, queue.url, queue.linktext, errors.error AS httpCode
			FROM queue INNER JOIN errors ON queue.normalizedUrl = errors.normalizedUrl`,
		`CREATE VIEW IF NOT EXISTS v_redirectsByFile AS
			SELECT queue.filePath, queue.url, queue.linktext,
				permanentRedirects.error AS httpCode
			FROM queue INNER JOIN permanentRedirects
				ON queue.normalizedUrl = permanentRedirects.normalizedUrl`,
		`CREATE VIEW IF NOT EXISTS v_exceptionsByFile AS
			SELECT queue.filePath, queue.url, queue.linktext,
				exceptions.reason AS reason
			FROM queue INNER JOIN exceptions
				ON queue.normalizedUrl = exceptions.normalizedUrl`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("build views: %w", err)
		}
	}
	return nil
}

// PruneProbed deletes from queue/queue_doi every row whose normalized key
// is already present in validUrls/validDois (i.e. fresh in the cache), and
// returns the number of distinct URLs remaining to probe.
func (s *Store) PruneProbed() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM queue WHERE normalizedUrl IN (
		SELECT normalizedUrl FROM validUrls)`); err != nil {
		return 0, err
	}
	if _, err := s.db.Exec(`DELETE FROM queue_doi WHERE doi IN (
		SELECT doi FROM validDois)`); err != nil {
		return 0, err
	}

	var remaining int
	row := s.db.QueryRow(`SELECT COUNT(DISTINCT normalizedUrl) FROM queue`)
	if err := row.Scan(&remaining); err != nil {
		return 0, err
	}
	return remaining, nil
}

// DistinctURLsToProbe returns every distinct normalized URL still in the
// queue after PruneProbed has run.
func (s *Store) DistinctURLsToProbe() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT DISTINCT normalizedUrl FROM queue`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DistinctDOIsToProbe returns every distinct DOI still in the queue.
func (s *Store) DistinctDOIsToProbe() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT DISTINCT doi FROM queue_doi`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// claim reports whether normalizedURL has not yet been classified this run
// and, if so, marks it claimed. Callers hold s.mu.
func (s *Store) claim(normalizedURL string) bool {
	if s.classifiedThisRun[normalizedURL] {
		return false
	}
	s.classifiedThisRun[normalizedURL] = true
	return true
}

// MarkFine records normalizedURL as valid, with the current epoch-seconds
// timestamp. First-write-wins per run: a URL already classified (fine,
// error, redirect, or exception) in this run is left untouched.
func (s *Store) MarkFine(normalizedURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(normalizedURL) {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO validUrls (normalizedUrl, lastValid) VALUES (?, ?)`,
		normalizedURL, s.now().Unix())
	return err
}

// MarkRedirect records a permanent redirect (301/308).
func (s *Store) MarkRedirect(normalizedURL string, code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(normalizedURL) {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO permanentRedirects (normalizedUrl, error) VALUES (?, ?)`,
		normalizedURL, code)
	return err
}

// MarkError records a definitive failure (404, 410, 403-after-fallback).
func (s *Store) MarkError(normalizedURL string, code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(normalizedURL) {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO errors VALUES (?, ?)`, normalizedURL, code)
	return err
}

// MarkException records a transport or rate-limit exception.
func (s *Store) MarkException(normalizedURL, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.claim(normalizedURL) {
		return nil
	}
	_, err := s.db.Exec(`INSERT INTO exceptions VALUES (?, ?)`, normalizedURL, reason)
	return err
}

// MarkValidDOI permanently records doi as valid. DOIs are never re-probed
// once validated, so this is an idempotent INSERT OR IGNORE.
func (s *Store) MarkValidDOI(doi string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`INSERT OR IGNORE INTO validDois (doi, lastSeen) VALUES (?, ?)`,
		doi, s.now().Unix())
	return err
}

// CountErrors returns the number of Error rows recorded this run, used by
// the raise_for_dead_links exit gate.
func (s *Store) CountErrors() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM errors`).Scan(&n)
	return n, err
}
