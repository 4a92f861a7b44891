// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prober implements the bounded-concurrency URL probe engine: a
// worker pool that issues HEAD requests (falling back to a bounded GET)
// against distinct normalized URLs and classifies each outcome exactly
// once.
package prober

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rvoigt/salted/pkg/metrics"
)

// maxFallbackReadBytes bounds the body read on the GET fallback so a
// server that mishandles HEAD cannot make the prober stream megabytes.
const maxFallbackReadBytes = 100

// Class is the terminal outcome of one URL probe.
type Class string

const (
	Fine      Class = "fine"
	Redirect  Class = "redirect"
	Error     Class = "error"
	Exception Class = "exception"
)

// Result is the classification of one probed URL.
type Result struct {
	URL          string
	Class        Class
	Code         int    // HTTP status for Fine/Redirect/Error
	Reason       string // exception taxonomy string for Exception
	UsedFallback bool
}

// RecommendWorkers picks a worker-pool size from the probe-set
// cardinality, per the automatic sizing tiers.
func RecommendWorkers(numChecks int) int {
	switch {
	case numChecks <= 24:
		return 4
	case numChecks <= 99:
		return 12
	case numChecks <= 4999:
		return 32
	default:
		return 64
	}
}

// Prober issues HTTP HEAD/GET probes against URLs with one shared client.
type Prober struct {
	client    *http.Client
	userAgent string
}

// New creates a Prober with a per-request timeout and a User-Agent sent on
// every probe (the DOI prober uses its own client and its own UA).
func New(timeout time.Duration, userAgent string) *Prober {
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent: userAgent,
	}
}

// Close releases the prober's HTTP client's idle connections. Called once,
// after every worker has quiesced.
func (p *Prober) Close() {
	p.client.CloseIdleConnections()
}

// Run drains urls through a bounded worker pool, calling onResult exactly
// once per URL from whichever goroutine classified it. onResult must be
// safe for concurrent use from up to `workers` goroutines.
func (p *Prober) Run(ctx context.Context, urls []string, workers int, onProbed func(), onResult func(Result)) {
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan string, len(urls))
	for _, u := range urls {
		jobs <- u
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for url := range jobs {
				res := p.probe(ctx, url)
				onResult(res)
				if onProbed != nil {
					onProbed()
				}
			}
		}()
	}
	wg.Wait()
}

// probe runs the full protocol for one URL: HEAD first, then a bounded GET
// fallback on 403 or an unrecognized status. Classification happens at
// most once: the fallback branch never recurses further.
func (p *Prober) probe(ctx context.Context, url string) Result {
	metrics.ProbesInFlight.Inc()
	defer metrics.ProbesInFlight.Dec()

	status, err := p.headRequest(ctx, url)
	result := p.classify(url, status, err, false)
	if result.Class == "" {
		// 403 or an unrecognized code on HEAD: retry once as a bounded GET.
		status, err = p.fullRequest(ctx, url)
		result = p.classify(url, status, err, true)
	}
	metrics.ProbesClassified.WithLabelValues(string(result.Class)).Inc()
	return result
}

func (p *Prober) headRequest(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func (p *Prober) fullRequest(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.CopyN(io.Discard, resp.Body, maxFallbackReadBytes)
	return resp.StatusCode, nil
}

// classify maps a status code (or transport error) from one attempt to a
// Result. An empty Class signals "retry as the bounded GET fallback",
// only valid when fromFallback is false.
func (p *Prober) classify(url string, status int, err error, fromFallback bool) Result {
	if err != nil {
		return Result{URL: url, Class: Exception, Reason: classifyTransportError(err), UsedFallback: fromFallback}
	}

	switch {
	case status == 200 || status == 302 || status == 303 || status == 307:
		return Result{URL: url, Class: Fine, Code: status, UsedFallback: fromFallback}
	case status == 301 || status == 308:
		return Result{URL: url, Class: Redirect, Code: status, UsedFallback: fromFallback}
	case status == 403:
		if fromFallback {
			return Result{URL: url, Class: Error, Code: 403, UsedFallback: true}
		}
		return Result{} // signal retry
	case status == 404 || status == 410:
		return Result{URL: url, Class: Error, Code: status, UsedFallback: fromFallback}
	case status == 429:
		return Result{URL: url, Class: Exception, Reason: "Rate Limit (429)", UsedFallback: fromFallback}
	default:
		if fromFallback {
			return Result{URL: url, Class: Exception, Reason: otherReason(status), UsedFallback: true}
		}
		return Result{} // signal retry
	}
}
