// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New()
	require.NoError(t, err, "Failed to open in-memory store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_InsertAndDistinctURLs(t *testing.T) {
	s := newTestStore(t)

	err := s.InsertLinks([]LinkRecord{
		{FilePath: "a.html", URL: "https://example.com/", NormalizedURL: "https://example.com/"},
		{FilePath: "b.html", URL: "https://example.com/", NormalizedURL: "https://example.com/"},
		{FilePath: "a.html", URL: "https://other.example.com/", NormalizedURL: "https://other.example.com/"},
	})
	require.NoError(t, err)

	urls, err := s.DistinctURLsToProbe()
	require.NoError(t, err)
	assert.Len(t, urls, 2, "Same normalized URL across two files should be probed once")
}

func TestStore_MarkFineIsFirstWriteWinsPerRun(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MarkFine("https://example.com/"))
	// A later reclassification attempt (as would happen if a fallback GET
	// raced with an earlier HEAD success) must not add a second row.
	require.NoError(t, s.MarkError("https://example.com/", 404))

	n, err := s.CountErrors()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "Fine should have claimed the URL first")
}

func TestStore_PruneProbedRemovesFreshCacheHits(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	require.NoError(t, s.InsertLinks([]LinkRecord{
		{FilePath: "a.html", URL: "https://cached.example.com/", NormalizedURL: "https://cached.example.com/"},
		{FilePath: "a.html", URL: "https://fresh.example.com/", NormalizedURL: "https://fresh.example.com/"},
	}))

	_, err := s.db.Exec(`INSERT INTO validUrls (normalizedUrl, lastValid) VALUES (?, ?)`,
		"https://cached.example.com/", s.now().Unix())
	require.NoError(t, err, "Failed to seed validUrls")

	remaining, err := s.PruneProbed()
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	urls, err := s.DistinctURLsToProbe()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://fresh.example.com/"}, urls)
}

func TestStore_SnapshotAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }

	require.NoError(t, s.MarkFine("https://example.com/"))
	require.NoError(t, s.MarkValidDOI("10.1000/xyz123"))

	cachePath := filepath.Join(t.TempDir(), "salted-cache.sqlite3")
	require.NoError(t, s.SnapshotToDisk(cachePath))

	s2 := newTestStore(t)
	s2.now = func() time.Time { return time.Unix(1_700_000_100, 0) }
	require.NoError(t, s2.LoadValidCache(cachePath, 24))

	require.NoError(t, s2.InsertLinks([]LinkRecord{
		{FilePath: "a.html", URL: "https://example.com/", NormalizedURL: "https://example.com/"},
	}))

	remaining, err := s2.PruneProbed()
	require.NoError(t, err)
	assert.Equal(t, 0, remaining, "Cached URL should be skipped within TTL")

	dois, err := s2.DistinctDOIsToProbe()
	require.NoError(t, err)
	assert.Empty(t, dois, "No DOIs were queued")
}

func TestStore_LoadValidCacheToleratesMissingFile(t *testing.T) {
	s := newTestStore(t)
	err := s.LoadValidCache(filepath.Join(t.TempDir(), "no-such-cache.sqlite3"), 24)
	assert.NoError(t, err, "A missing cache file is not an error")
}

func TestStore_ReinitializeDropsRunScopedState(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.InsertLinks([]LinkRecord{
		{FilePath: "a.html", URL: "https://example.com/", NormalizedURL: "https://example.com/"},
	}))
	require.NoError(t, s.MarkError("https://example.com/", 404))

	require.NoError(t, s.Reinitialize())

	n, err := s.CountErrors()
	require.NoError(t, err)
	assert.Equal(t, 0, n, "Error rows must not survive Reinitialize")

	urls, err := s.DistinctURLsToProbe()
	require.NoError(t, err)
	assert.Empty(t, urls, "Queue must not survive Reinitialize")

	// claiming should work again since classifiedThisRun was reset
	assert.NoError(t, s.MarkFine("https://example.com/"))
}
