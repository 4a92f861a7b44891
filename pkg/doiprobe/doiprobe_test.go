// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package doiprobe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRateLimitHeaders(t *testing.T) {
	limit, seconds := parseRateLimitHeaders("50", "1s")
	assert.Equal(t, 50, limit)
	assert.Equal(t, 1.0, seconds)
}

func TestParseRateLimitHeaders_MissingOrMalformed(t *testing.T) {
	limit, seconds := parseRateLimitHeaders("", "")
	assert.Zero(t, limit, "Empty header must leave the caller's value alone")
	assert.Zero(t, seconds)

	limit, seconds = parseRateLimitHeaders("not-a-number", "not-a-duration")
	assert.Zero(t, limit, "Malformed header must leave the caller's value alone")
	assert.Zero(t, seconds)
}

func TestRun_ClassifiesEachDOIOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rate-Limit-Limit", "50")
		w.Header().Set("X-Rate-Limit-Interval", "1s")
		if strings.Contains(r.URL.Path, "invalid") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	p := New(5*time.Second, "salted-test/1.0 (https://example.com; mailto:test@example.com)")
	p.endpoint = srv.URL + "/works/"
	defer p.Close()

	dois := []string{"10.1000/real1", "10.1000/invalidDOI", "10.1000/real2"}
	var mu sync.Mutex
	outcomes := map[string]Outcome{}
	p.Run(context.Background(), dois, nil, func(r Result) {
		mu.Lock()
		outcomes[r.DOI] = r.Outcome
		mu.Unlock()
	})

	require.Len(t, outcomes, len(dois), "Every DOI must be classified exactly once")
	assert.Equal(t, Valid, outcomes["10.1000/real1"])
	assert.Equal(t, Valid, outcomes["10.1000/real2"])
	assert.Equal(t, Invalid, outcomes["10.1000/invalidDOI"])
}

func TestProbe_SendsPoliteUserAgent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ua := "salted/1.0 (https://example.com; mailto:test@example.com)"
	p := New(5*time.Second, ua)
	p.endpoint = srv.URL + "/works/"
	defer p.Close()

	res, limit, interval := p.probe(context.Background(), "10.1000/xyz")
	require.Equal(t, Valid, res.Outcome)
	assert.Zero(t, limit, "No rate-limit headers were sent")
	assert.Zero(t, interval)
	assert.Equal(t, ua, got)
}
