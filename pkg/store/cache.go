// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"database/sql"
	"os"
)

// LoadValidCache opens the on-disk cache file read-only and merges rows
// that are still fresh into the in-memory validUrls/validDois tables.
// URLs are filtered by ttlHours; DOIs are unconditional (permanent once
// valid). Any error opening or reading the cache file is non-fatal: the
// run proceeds with whatever was loaded before the error (typically
// nothing).
func (s *Store) LoadValidCache(cachePath string, ttlHours int) error {
	if cachePath == "" {
		return nil
	}
	if _, err := os.Stat(cachePath); err != nil {
		return nil // no cache file yet; proceed with an empty cache
	}

	disk, err := sql.Open("sqlite", cachePath+"?mode=ro")
	if err != nil {
		return nil
	}
	defer disk.Close()

	cutoff := s.now().Unix() - int64(ttlHours)*3600

	type urlRow struct {
		normalizedURL string
		lastValid     int64
	}
	var urls []urlRow
	rows, err := disk.Query(
		`SELECT normalizedUrl, lastValid FROM validUrls WHERE lastValid > ?`, cutoff)
	if err == nil {
		for rows.Next() {
			var r urlRow
			if rows.Scan(&r.normalizedURL, &r.lastValid) == nil {
				urls = append(urls, r)
			}
		}
		rows.Close()
	}

	type doiRow struct {
		doi      string
		lastSeen int64
	}
	var dois []doiRow
	rows, err = disk.Query(`SELECT doi, lastSeen FROM validDois`)
	if err == nil {
		for rows.Next() {
			var r doiRow
			if rows.Scan(&r.doi, &r.lastSeen) == nil {
				dois = append(dois, r)
			}
		}
		rows.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range urls {
		_, _ = s.db.Exec(`INSERT INTO validUrls (normalizedUrl, lastValid) VALUES (?, ?)`,
			u.normalizedURL, u.lastValid)
	}
	for _, d := range dois {
		_, _ = s.db.Exec(`INSERT OR IGNORE INTO validDois (doi, lastSeen) VALUES (?, ?)`,
			d.doi, d.lastSeen)
	}
	return nil
}

// SnapshotToDisk atomically replaces cachePath with a fresh SQLite file
// containing the current validUrls and validDois tables. Called only after
// a successful probe phase (whether or not dead links were found), so that
// progress is never lost even when raise_for_dead_links later terminates
// the run.
func (s *Store) SnapshotToDisk(cachePath string) error {
	s.mu.Lock()
	type urlRow struct {
		normalizedURL string
		lastValid     int64
	}
	var urls []urlRow
	rows, err := s.db.Query(`SELECT normalizedUrl, lastValid FROM validUrls`)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for rows.Next() {
		var r urlRow
		if err := rows.Scan(&r.normalizedURL, &r.lastValid); err != nil {
			rows.Close()
			s.mu.Unlock()
			return err
		}
		urls = append(urls, r)
	}
	rows.Close()

	type doiRow struct {
		doi      string
		lastSeen int64
	}
	var dois []doiRow
	rows, err = s.db.Query(`SELECT doi, lastSeen FROM validDois`)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for rows.Next() {
		var r doiRow
		if err := rows.Scan(&r.doi, &r.lastSeen); err != nil {
			rows.Close()
			s.mu.Unlock()
			return err
		}
		dois = append(dois, r)
	}
	rows.Close()
	s.mu.Unlock()

	if cachePath == "" {
		return nil
	}

	if _, err := os.Stat(cachePath); err == nil {
		if err := os.Remove(cachePath); err != nil {
			return err
		}
	}

	disk, err := sql.Open("sqlite", cachePath)
	if err != nil {
		return err
	}
	defer disk.Close()

	if _, err := disk.Exec(`CREATE TABLE validUrls (normalizedUrl text, lastValid integer)`); err != nil {
		return err
	}
	if _, err := disk.Exec(`CREATE TABLE validDois (doi text, lastSeen integer)`); err != nil {
		return err
	}

	tx, err := disk.Begin()
	if err != nil {
		return err
	}
	urlStmt, err := tx.Prepare(`INSERT INTO validUrls (normalizedUrl, lastValid) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, u := range urls {
		if _, err := urlStmt.Exec(u.normalizedURL, u.lastValid); err != nil {
			urlStmt.Close()
			tx.Rollback()
			return err
		}
	}
	urlStmt.Close()

	doiStmt, err := tx.Prepare(`INSERT INTO validDois (doi, lastSeen) VALUES (?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, d := range dois {
		if _, err := doiStmt.Exec(d.doi, d.lastSeen); err != nil {
			doiStmt.Close()
			tx.Rollback()
			return err
		}
	}
	doiStmt.Close()

	return tx.Commit()
}
