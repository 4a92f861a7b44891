// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	internalerrors "github.com/rvoigt/salted/internal/errors"
	"github.com/rvoigt/salted/internal/ui"
	"github.com/rvoigt/salted/pkg/config"
	"github.com/rvoigt/salted/pkg/engine"
	"github.com/rvoigt/salted/pkg/report"
	"github.com/schollz/progressbar/v3"
)

// runCheck implements `salted check [path]`: resolve configuration, run the
// engine against path, render the report, and apply the exit gate.
//
// Usage: salted check [options] [path]
func runCheck(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	fileTypes := fs.String("file-types", "", "supported|html|tex|markdown (default from config)")
	numWorkers := fs.String("num-workers", "", `"automatic" or a positive integer`)
	timeout := fs.Int("timeout", 0, "per-request timeout in seconds")
	raiseForDeadLinks := fs.Bool("raise-for-dead-links", false, "exit non-zero if any link returned a permanent error")
	userAgent := fs.String("user-agent", "", "User-Agent header sent on every URL probe (not on DOI probes)")
	cacheFile := fs.String("cache-file", "", "path to the on-disk cache database")
	ttlHours := fs.Int("ttl-hours", 0, "skip re-checking URLs valid within this many hours")
	baseURL := fs.String("base-url", "", "rewrite file paths in the report relative to this URL")
	writeTo := fs.String("write-to", "", `"cli" or a file path for the rendered report`)
	templateSearchPath := fs.String("template-searchpath", "", "directory containing a custom report template")
	templateName := fs.String("template-name", "", "report template file name")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	searchPath := "."
	if fs.NArg() > 0 {
		searchPath = fs.Arg(0)
	}

	cfg := config.Default()
	cfg, err := config.LoadFile(configPath, cfg)
	if err != nil {
		internalerrors.FatalError(internalerrors.NewConfigError(
			"Invalid config file", err.Error(),
			"Check that the INI file only uses the BEHAVIOR, CACHE, FILES, and TEMPLATE sections.",
			err,
		), globals.JSON)
	}
	cfg.SearchPath = searchPath
	if *fileTypes != "" {
		cfg.FileTypes = *fileTypes
	}
	if *numWorkers != "" {
		cfg.NumWorkers = *numWorkers
	}
	if *timeout > 0 {
		cfg.TimeoutSeconds = *timeout
	}
	if *raiseForDeadLinks {
		cfg.RaiseForDeadLinks = true
	}
	if *userAgent != "" {
		cfg.UserAgent = *userAgent
	}
	if *cacheFile != "" {
		cfg.CacheFile = *cacheFile
	}
	if *ttlHours > 0 {
		cfg.DontCheckAgainWithinHours = *ttlHours
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *writeTo != "" {
		cfg.WriteTo = *writeTo
	}
	if *templateSearchPath != "" {
		cfg.TemplateSearchPath = *templateSearchPath
	}
	if *templateName != "" {
		cfg.TemplateName = *templateName
	}

	logger := newLogger(globals.JSON)

	progressCfg := NewProgressConfig(globals)
	var currentBar *progressbar.ProgressBar
	var currentPhase string
	progressFunc := func(phase string, current, total int) {
		if phase != currentPhase {
			if currentBar != nil {
				_ = currentBar.Finish()
			}
			currentPhase = phase
			currentBar = NewProgressBar(progressCfg, total, phaseDescription(phase))
		}
		if currentBar != nil {
			_ = currentBar.Set(current)
		}
	}

	eng, err := engine.New(cfg, progressFunc)
	if err != nil {
		internalerrors.FatalError(err, globals.JSON)
	}
	defer func() { _ = eng.Close() }()

	logger.Info("engine.check.start", "path", searchPath, "num_workers", cfg.NumWorkers)
	stats, checkErr := eng.Check(context.Background(), searchPath)
	if currentBar != nil {
		_ = currentBar.Finish()
	}

	logger.Info("engine.check.done",
		"files_scanned", stats.FilesScanned,
		"links_found", stats.LinksFound,
		"dois_found", stats.DOIsFound,
		"errors", stats.NumErrors,
		"redirects", stats.NumRedirects,
		"exceptions", stats.NumExceptions,
	)

	st := eng.Store()
	tmpl, tmplErr := report.Load(cfg.TemplateSearchPath, cfg.TemplateName)
	if tmplErr == nil {
		if rendered, rerr := report.Render(tmpl, st, cfg.BaseURL); rerr == nil {
			_ = report.WriteTo(cfg.WriteTo, rendered, os.Stdout)
		}
	}

	printSummary(stats, globals)

	if checkErr != nil {
		internalerrors.FatalError(checkErr, globals.JSON)
	}
}

func printSummary(stats engine.Stats, globals GlobalFlags) {
	if globals.Quiet || globals.JSON {
		return
	}
	ui.Header("Summary")
	fmt.Printf("%s %s\n", ui.Label("Files scanned:"), ui.CountText(stats.FilesScanned))
	fmt.Printf("%s %s\n", ui.Label("Links found:"), ui.CountText(stats.LinksFound))
	fmt.Printf("%s %s\n", ui.Label("DOIs found:"), ui.CountText(stats.DOIsFound))
	if stats.NumErrors > 0 {
		ui.Warningf("Errors: %d", stats.NumErrors)
	} else {
		ui.Success("No broken links found.")
	}
	if stats.NumRedirects > 0 {
		fmt.Printf("%s %s\n", ui.Label("Permanent redirects:"), ui.CountText(stats.NumRedirects))
	}
	if stats.NumExceptions > 0 {
		fmt.Printf("%s %s\n", ui.Label("Exceptions:"), ui.CountText(stats.NumExceptions))
	}
}

func newLogger(jsonMode bool) *slog.Logger {
	var handler slog.Handler
	if jsonMode {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	return slog.New(handler)
}
