// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package doiprobe validates DOIs against the CrossRef API with a fixed
// five-worker pool and a polite, rate-limit-header-driven backoff, mirroring
// the URL prober's worker-pool shape but tuned to CrossRef's own published
// rate-limit contract instead of a status-code state machine.
package doiprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rvoigt/salted/pkg/metrics"
)

// fixedWorkers is the DOI pool size. Deliberately not configurable the way
// the URL pool is: CrossRef's advertised budget, not local parallelism, is
// the throughput ceiling.
const fixedWorkers = 5

// defaultMaxQueries and defaultIntervalSeconds are CrossRef's documented
// defaults, used until the API tells a worker otherwise via response
// headers.
const (
	defaultMaxQueries      = 5
	defaultIntervalSeconds = 1.0
)

type Outcome string

const (
	Valid   Outcome = "valid"
	Invalid Outcome = "invalid"
	Other   Outcome = "other"
)

// Result is the classification of one probed DOI.
type Result struct {
	DOI     string
	Outcome Outcome
	Code    int
	Err     error
}

// crossRefWorks is the CrossRef works endpoint; the DOI under test is
// path-escaped and appended.
const crossRefWorks = "https://api.crossref.org/works/"

// Prober issues GET requests against the CrossRef works endpoint.
type Prober struct {
	client    *http.Client
	userAgent string
	endpoint  string
}

// New creates a Prober. userAgent should already be formatted as
// "salted/<version> (<project-url>; mailto:<contact>)" per CrossRef's
// etiquette guidelines.
func New(timeout time.Duration, userAgent string) *Prober {
	return &Prober{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		endpoint:  crossRefWorks,
	}
}

func (p *Prober) Close() {
	p.client.CloseIdleConnections()
}

// Run drains dois through the fixed five-worker pool, calling onResult
// exactly once per DOI. Each worker sleeps between requests according to
// the most recently observed rate-limit headers, so throughput adapts to
// whatever CrossRef is currently willing to grant this client.
func (p *Prober) Run(ctx context.Context, dois []string, onProbed func(), onResult func(Result)) {
	jobs := make(chan string, len(dois))
	for _, d := range dois {
		jobs <- d
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(fixedWorkers)
	for i := 0; i < fixedWorkers; i++ {
		go func() {
			defer wg.Done()
			maxQueries := defaultMaxQueries
			intervalSeconds := defaultIntervalSeconds
			for doi := range jobs {
				res, limit, interval := p.probe(ctx, doi)
				if limit > 0 {
					maxQueries = limit
				}
				if interval > 0 {
					intervalSeconds = interval
				}
				onResult(res)
				if onProbed != nil {
					onProbed()
				}
				metrics.DOIProbes.WithLabelValues(string(res.Outcome)).Inc()

				sleep := (intervalSeconds / (0.9 * float64(maxQueries))) * fixedWorkers
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Duration(sleep * float64(time.Second))):
				}
			}
		}()
	}
	wg.Wait()
}

func (p *Prober) probe(ctx context.Context, doi string) (res Result, limit int, intervalSeconds float64) {
	endpoint := p.endpoint + url.PathEscape(doi)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{DOI: doi, Outcome: Other, Err: err}, 0, 0
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Result{DOI: doi, Outcome: Other, Err: err}, 0, 0
	}
	defer resp.Body.Close()

	limit, intervalSeconds = parseRateLimitHeaders(resp.Header.Get("X-Rate-Limit-Limit"), resp.Header.Get("X-Rate-Limit-Interval"))

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Status string `json:"status"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return Result{DOI: doi, Outcome: Valid, Code: resp.StatusCode}, limit, intervalSeconds
	case http.StatusNotFound:
		return Result{DOI: doi, Outcome: Invalid, Code: resp.StatusCode}, limit, intervalSeconds
	default:
		return Result{DOI: doi, Outcome: Other, Code: resp.StatusCode,
			Err: fmt.Errorf("crossref: unexpected status %d for doi %q", resp.StatusCode, doi)}, limit, intervalSeconds
	}
}

// parseRateLimitHeaders reads CrossRef's X-Rate-Limit-Limit (a bare
// integer) and X-Rate-Limit-Interval (e.g. "1s") headers. Either one
// missing or malformed leaves that half of the formula to the caller's
// existing value.
func parseRateLimitHeaders(limitHeader, intervalHeader string) (limit int, seconds float64) {
	if limitHeader != "" {
		if n, err := strconv.Atoi(limitHeader); err == nil {
			limit = n
		}
	}
	if intervalHeader != "" {
		if d, err := time.ParseDuration(intervalHeader); err == nil {
			seconds = d.Seconds()
		}
	}
	return limit, seconds
}
