// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rvoigt/salted/pkg/config"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

func TestEngine_CheckClassifiesOneBrokenAndOneFineLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "page.html", `<a href="`+srv.URL+`/ok">fine</a><a href="`+srv.URL+`/missing">broken</a>`)

	cfg := config.Default()
	cfg.CacheFile = filepath.Join(dir, "cache.sqlite3")

	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer eng.Close()

	stats, err := eng.Check(context.Background(), dir)
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if stats.LinksFound != 2 {
		t.Errorf("LinksFound = %d, want 2", stats.LinksFound)
	}
	if stats.NumErrors != 1 {
		t.Errorf("NumErrors = %d, want 1", stats.NumErrors)
	}
}

func TestEngine_CheckIsReentrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "page.html", `<a href="`+srv.URL+`/a">a</a>`)

	cfg := config.Default()
	cfg.CacheFile = filepath.Join(dir, "cache.sqlite3")

	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer eng.Close()

	if _, err := eng.Check(context.Background(), dir); err != nil {
		t.Fatalf("first Check() error = %v", err)
	}
	stats, err := eng.Check(context.Background(), dir)
	if err != nil {
		t.Fatalf("second Check() error = %v", err)
	}
	if stats.LinksFound != 1 {
		t.Errorf("second run LinksFound = %d, want 1", stats.LinksFound)
	}
}

func TestEngine_RaiseForDeadLinksReturnsErrorAfterCacheWrite(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	writeFixture(t, dir, "page.html", `<a href="`+srv.URL+`/dead">dead</a>`)

	cfg := config.Default()
	cfg.CacheFile = filepath.Join(dir, "cache.sqlite3")
	cfg.RaiseForDeadLinks = true

	eng, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer eng.Close()

	_, err = eng.Check(context.Background(), dir)
	if err == nil {
		t.Fatal("Check() error = nil, want a dead-links error")
	}
	if _, statErr := os.Stat(cfg.CacheFile); statErr != nil {
		t.Errorf("cache file not written before the dead-links gate: %v", statErr)
	}
}
