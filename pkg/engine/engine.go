// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package engine orchestrates the full pipeline: discover files, ingest
// links and DOIs, stage them in the store, join the on-disk cache, run the
// two probe pools in sequence, render nothing itself (that's pkg/report)
// but leaves the store ready for it, and write the cache back.
package engine

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	internalerrors "github.com/rvoigt/salted/internal/errors"
	"github.com/rvoigt/salted/pkg/config"
	"github.com/rvoigt/salted/pkg/discover"
	"github.com/rvoigt/salted/pkg/doiprobe"
	"github.com/rvoigt/salted/pkg/ingest"
	"github.com/rvoigt/salted/pkg/normalize"
	"github.com/rvoigt/salted/pkg/prober"
	"github.com/rvoigt/salted/pkg/store"
	"github.com/rvoigt/salted/pkg/version"
)

// ProgressFunc reports phase progress: current completions out of total
// for the named phase ("urls" or "dois").
type ProgressFunc func(phase string, current, total int)

// Stats summarizes one Check call, for the CLI summary and exit gate.
type Stats struct {
	FilesScanned   int
	LinksFound     int
	DOIsFound      int
	URLsProbed     int
	DOIsProbed     int
	NumErrors      int
	NumRedirects   int
	NumExceptions  int
	FileReadErrors int
}

// Engine runs the pipeline against one staging store. It is reentrant:
// Check may be called repeatedly, each call reinitializing the store and
// reloading the disk cache.
type Engine struct {
	store     *store.Store
	cfg       config.Config
	prober    *prober.Prober
	doiProber *doiprobe.Prober
	progress  ProgressFunc

	ranOnce bool
}

// New constructs an Engine from a resolved Config. progress may be nil.
func New(cfg config.Config, progress ProgressFunc) (*Engine, error) {
	st, err := store.New()
	if err != nil {
		return nil, internalerrors.NewDatabaseError(
			"Could not open staging store",
			err.Error(),
			"This is unexpected for an in-memory database; please report this issue.",
			err,
		)
	}

	timeout, err := timeoutSeconds(cfg.TimeoutSeconds)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := validateCacheFile(cfg.CacheFile); err != nil {
		st.Close()
		return nil, err
	}

	return &Engine{
		store:     st,
		cfg:       cfg,
		prober:    prober.New(timeout, cfg.UserAgent),
		doiProber: doiprobe.New(10*time.Second, crossRefUserAgent()),
		progress:  progress,
	}, nil
}

// Store returns the underlying staging store, for the reporter to read
// views from once Check has completed.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Close releases the engine's HTTP clients and in-memory store.
func (e *Engine) Close() error {
	e.prober.Close()
	e.doiProber.Close()
	return e.store.Close()
}

// Check runs the full pipeline against path and returns summary stats.
// path may be a single supported file or a directory to descend
// recursively. A missing path or an unsupported single-file suffix
// returns an input error.
func (e *Engine) Check(ctx context.Context, path string) (Stats, error) {
	if e.ranOnce {
		if err := e.store.Reinitialize(); err != nil {
			return Stats{}, err
		}
	}
	e.ranOnce = true

	if err := e.store.LoadValidCache(e.cfg.CacheFile, e.cfg.DontCheckAgainWithinHours); err != nil {
		return Stats{}, err
	}

	files, err := discover.Files(path, discover.FileType(e.cfg.FileTypes))
	if err != nil {
		return Stats{}, internalerrors.NewInputError(
			"Cannot discover source files",
			fmt.Sprintf("%s: %v", path, err),
			"Check that the path exists and, for a single file, has a supported suffix (.htm, .html, .md, .tex, .bib).",
			err,
		)
	}

	stats := Stats{FilesScanned: len(files)}
	for _, f := range files {
		links, dois, ferr := ingest.File(f)
		if ferr != nil {
			stats.FileReadErrors++
			_ = e.store.InsertFileAccessError(f, ferr.Error())
			continue
		}
		stats.LinksFound += len(links)
		stats.DOIsFound += len(dois)

		linkRecords := make([]store.LinkRecord, 0, len(links))
		for _, l := range links {
			norm, nerr := normalize.URL(l.URL)
			if nerr != nil {
				continue
			}
			linkRecords = append(linkRecords, store.LinkRecord{
				FilePath:      f,
				Hostname:      hostnameOf(l.URL),
				URL:           l.URL,
				NormalizedURL: norm,
				LinkText:      l.LinkText,
			})
		}
		if err := e.store.InsertLinks(linkRecords); err != nil {
			return stats, err
		}

		doiRecords := make([]store.DoiRecord, 0, len(dois))
		for _, d := range dois {
			doiRecords = append(doiRecords, store.DoiRecord{FilePath: f, DOI: d.Value, Description: d.Description})
		}
		if err := e.store.InsertDOIs(doiRecords); err != nil {
			return stats, err
		}
	}

	if err := e.store.BuildIndices(); err != nil {
		return stats, err
	}
	if _, err := e.store.PruneProbed(); err != nil {
		return stats, err
	}

	if err := e.runURLPhase(ctx, &stats); err != nil {
		return stats, err
	}
	if err := e.runDOIPhase(ctx, &stats); err != nil {
		return stats, err
	}

	if err := e.store.BuildViews(); err != nil {
		return stats, err
	}
	if err := e.store.SnapshotToDisk(e.cfg.CacheFile); err != nil {
		return stats, err
	}

	numErrors, err := e.store.CountErrors()
	if err != nil {
		return stats, err
	}
	stats.NumErrors = numErrors

	if e.cfg.RaiseForDeadLinks && numErrors > 0 {
		return stats, internalerrors.NewDeadLinksError(numErrors)
	}
	return stats, nil
}

func (e *Engine) runURLPhase(ctx context.Context, stats *Stats) error {
	urls, err := e.store.DistinctURLsToProbe()
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return nil
	}

	workers, err := resolveWorkers(e.cfg.NumWorkers, len(urls))
	if err != nil {
		return err
	}

	// The prober invokes these callbacks from up to `workers` goroutines;
	// one mutex serializes the stats, progress, and first-error state.
	var mu sync.Mutex
	total := len(urls)
	done := 0
	onProbed := func() {
		mu.Lock()
		done++
		if e.progress != nil {
			e.progress("urls", done, total)
		}
		mu.Unlock()
	}

	var firstErr error
	e.prober.Run(ctx, urls, workers, onProbed, func(res prober.Result) {
		var err error
		switch res.Class {
		case prober.Fine:
			err = e.store.MarkFine(res.URL)
		case prober.Redirect:
			err = e.store.MarkRedirect(res.URL, res.Code)
		case prober.Error:
			err = e.store.MarkError(res.URL, res.Code)
		case prober.Exception:
			err = e.store.MarkException(res.URL, res.Reason)
		}
		mu.Lock()
		stats.URLsProbed++
		switch res.Class {
		case prober.Redirect:
			stats.NumRedirects++
		case prober.Exception:
			stats.NumExceptions++
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	})
	return firstErr
}

func (e *Engine) runDOIPhase(ctx context.Context, stats *Stats) error {
	dois, err := e.store.DistinctDOIsToProbe()
	if err != nil {
		return err
	}
	if len(dois) == 0 {
		return nil
	}

	var mu sync.Mutex
	total := len(dois)
	done := 0
	onProbed := func() {
		mu.Lock()
		done++
		if e.progress != nil {
			e.progress("dois", done, total)
		}
		mu.Unlock()
	}

	var firstErr error
	e.doiProber.Run(ctx, dois, onProbed, func(res doiprobe.Result) {
		var err error
		if res.Outcome == doiprobe.Valid {
			err = e.store.MarkValidDOI(res.DOI)
		}
		mu.Lock()
		stats.DOIsProbed++
		if err != nil && firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	})
	return firstErr
}

// resolveWorkers turns the config's num_workers setting ("automatic" or a
// decimal string) into a concrete worker count for the given probe-set
// size.
func resolveWorkers(setting string, numChecks int) (int, error) {
	if setting == "" || setting == "automatic" {
		return prober.RecommendWorkers(numChecks), nil
	}
	n, err := strconv.Atoi(setting)
	if err != nil || n < 1 {
		return 0, internalerrors.NewConfigError(
			"Invalid num_workers setting",
			fmt.Sprintf("%q is neither \"automatic\" nor a positive integer", setting),
			"Set num_workers to \"automatic\" or a positive integer in the config file or via --num-workers.",
			err,
		)
	}
	return n, nil
}

func timeoutSeconds(seconds int) (time.Duration, error) {
	if seconds < 1 {
		return 0, internalerrors.NewConfigError(
			"Invalid timeout setting",
			fmt.Sprintf("%d is not a positive number of seconds", seconds),
			"Set timeout to a positive integer in the config file or via --timeout.",
			nil,
		)
	}
	return time.Duration(seconds) * time.Second, nil
}

func hostnameOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// crossRefUserAgent builds the polite identified User-Agent sent on DOI
// probes. The configurable user_agent setting applies to URL probes only;
// CrossRef always sees the honest salted identity with a contact address.
func crossRefUserAgent() string {
	return fmt.Sprintf("salted/%s (%s; mailto:%s)", version.Version, version.ProjectURL, version.ContactEmail)
}

// validateCacheFile checks that the cache path's parent directory exists
// and that the path itself is not a directory.
func validateCacheFile(cachePath string) error {
	if cachePath == "" {
		return nil
	}
	if info, err := os.Stat(cachePath); err == nil && info.IsDir() {
		return internalerrors.NewConfigError(
			"Invalid cache_file setting",
			fmt.Sprintf("%s is a directory, not a file", cachePath),
			"Point cache_file at a file path, e.g. salted-cache.sqlite3.",
			nil,
		)
	}
	parent := filepath.Dir(cachePath)
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		return internalerrors.NewConfigError(
			"Invalid cache_file setting",
			fmt.Sprintf("the parent directory %s does not exist", parent),
			"Create the directory first or point cache_file somewhere that exists.",
			err,
		)
	}
	return nil
}
