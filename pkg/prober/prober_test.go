// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package prober

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecommendWorkers(t *testing.T) {
	cases := map[int]int{0: 4, 24: 4, 25: 12, 99: 12, 100: 32, 4999: 32, 5000: 64, 50000: 64}
	for n, want := range cases {
		assert.Equal(t, want, RecommendWorkers(n), "RecommendWorkers(%d)", n)
	}
}

func TestProbe_ClassifiesStatusCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/moved":
			w.WriteHeader(http.StatusMovedPermanently)
		case "/gone":
			w.WriteHeader(http.StatusGone)
		case "/limited":
			w.WriteHeader(http.StatusTooManyRequests)
		case "/forbidden-always":
			w.WriteHeader(http.StatusForbidden)
		case "/forbidden-then-ok":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	p := New(5*time.Second, "salted-test/1.0")
	defer p.Close()

	cases := []struct {
		path      string
		wantClass Class
		wantCode  int
	}{
		{"/ok", Fine, 200},
		{"/moved", Redirect, 301},
		{"/gone", Error, 410},
		{"/limited", Exception, 0},
		{"/forbidden-always", Error, 403},
		{"/forbidden-then-ok", Fine, 200},
	}

	for _, c := range cases {
		res := p.probe(context.Background(), srv.URL+c.path)
		assert.Equal(t, c.wantClass, res.Class, "probe(%s) class", c.path)
		if c.wantCode != 0 {
			assert.Equal(t, c.wantCode, res.Code, "probe(%s) code", c.path)
		}
	}

	res := p.probe(context.Background(), srv.URL+"/forbidden-then-ok")
	assert.True(t, res.UsedFallback, "403-on-HEAD must be retried as a bounded GET")
}

func TestProbe_OtherStatusBecomesException(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	p := New(5*time.Second, "")
	defer p.Close()

	res := p.probe(context.Background(), srv.URL)
	require.Equal(t, Exception, res.Class)
	assert.Equal(t, "Other(418)", res.Reason)
}

func TestProbe_ConnectionRefusedIsConnectorException(t *testing.T) {
	p := New(2*time.Second, "")
	defer p.Close()

	res := p.probe(context.Background(), "http://127.0.0.1:1")
	require.Equal(t, Exception, res.Class)
	assert.Contains(t, []string{"ClientConnectorError", "Timeout"}, res.Reason)
}

func TestRun_NeverExceedsWorkerCount(t *testing.T) {
	const workers = 3

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(5*time.Second, "")
	defer p.Close()

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = srv.URL + "/" + string(rune('a'+i))
	}
	p.Run(context.Background(), urls, workers, nil, func(Result) {})

	assert.LessOrEqual(t, maxInFlight, workers, "Observed concurrency must stay within the pool size")
}

func TestRun_CallsOnResultOncePerURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(5*time.Second, "")
	defer p.Close()

	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}
	var mu sync.Mutex
	seen := map[string]bool{}
	p.Run(context.Background(), urls, 2, nil, func(r Result) {
		mu.Lock()
		seen[r.URL] = true
		mu.Unlock()
	})

	assert.Len(t, seen, len(urls))
}
