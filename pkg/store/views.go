// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import "strconv"

// FileAccessError is one file that could not be read during ingest.
type FileAccessError struct {
	FilePath string
	Problem  string
}

// LinkDefect is one broken, redirected, or exception-raising hyperlink as
// it should be shown to the user: the raw (non-normalized) URL and its
// link text, joined back to the file that referenced it.
type LinkDefect struct {
	URL      string
	LinkText string
	Detail   string // HTTP code (as string) for errors/redirects, reason for exceptions
}

// FileReport groups the defects of one category found in one source file.
type FileReport struct {
	FilePath string
	Count    int
	Defects  []LinkDefect
}

// AccessErrors returns every file that could not be read, in insertion
// order.
func (s *Store) AccessErrors() ([]FileAccessError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(`SELECT filePath, problem FROM fileAccessErrors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FileAccessError
	for rows.Next() {
		var e FileAccessError
		if err := rows.Scan(&e.FilePath, &e.Problem); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ErrorsByFile returns, per file, the count and joined list of permanent
// errors (404, 410, 403-after-fallback), ordered by count descending then
// file path ascending.
func (s *Store) ErrorsByFile() ([]FileReport, error) {
	return s.reportByFile(
		`SELECT filePath, numErrors FROM v_errorCountByFile
		 ORDER BY numErrors DESC, filePath ASC`,
		`SELECT url, linktext, httpCode FROM v_errorsByFile WHERE filePath = ?`,
	)
}

// RedirectsByFile returns, per file, the count and joined list of
// permanent redirects (301, 308).
func (s *Store) RedirectsByFile() ([]FileReport, error) {
	return s.reportByFile(
		`SELECT filePath, numRedirects FROM v_redirectCountByFile
		 ORDER BY numRedirects DESC, filePath ASC`,
		`SELECT url, linktext, httpCode FROM v_redirectsByFile WHERE filePath = ?`,
	)
}

// ExceptionsByFile returns, per file, the count and joined list of
// transport/rate-limit exceptions.
func (s *Store) ExceptionsByFile() ([]FileReport, error) {
	return s.reportByFile(
		`SELECT filePath, numExceptions FROM v_exceptionCountByFile
		 ORDER BY numExceptions DESC, filePath ASC`,
		`SELECT url, linktext, reason FROM v_exceptionsByFile WHERE filePath = ?`,
	)
}

func (s *Store) reportByFile(countQuery, detailQuery string) ([]FileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(countQuery)
	if err != nil {
		return nil, err
	}
	type fileCount struct {
		filePath string
		count    int
	}
	var files []fileCount
	for rows.Next() {
		var fc fileCount
		if err := rows.Scan(&fc.filePath, &fc.count); err != nil {
			rows.Close()
			return nil, err
		}
		files = append(files, fc)
	}
	rows.Close()

	var out []FileReport
	for _, fc := range files {
		defectRows, err := s.db.Query(detailQuery, fc.filePath)
		if err != nil {
			return nil, err
		}
		var defects []LinkDefect
		for defectRows.Next() {
			var d LinkDefect
			var detail interface{}
			if err := defectRows.Scan(&d.URL, &d.LinkText, &detail); err != nil {
				defectRows.Close()
				return nil, err
			}
			d.Detail = detailString(detail)
			defects = append(defects, d)
		}
		defectRows.Close()
		out = append(out, FileReport{FilePath: fc.filePath, Count: fc.count, Defects: defects})
	}
	return out, nil
}

func detailString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}
