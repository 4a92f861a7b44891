// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the salted CLI for validating hyperlinks and
// DOIs across a documentation corpus.
//
// Usage:
//
//	salted check [path]           Validate links/DOIs under path (default ".")
//	salted version                Show version and exit
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/rvoigt/salted/internal/ui"
	"github.com/rvoigt/salted/pkg/version"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		configPath  = flag.StringP("config", "c", "", "Path to an INI config file")
		jsonOutput  = flag.Bool("json", false, "Emit logs and fatal errors as JSON (implies --quiet)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress bars and informational output")
		metricsAddr = flag.String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	)

	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `salted - concurrent link and DOI validator

Usage:
  salted <command> [options] [path]

Commands:
  check [path]   Validate hyperlinks and DOIs under path (default ".")
  version        Show version and exit

Global Options:
  -c, --config         Path to an INI config file
  --json               Emit logs and fatal errors as JSON (implies --quiet)
  --no-color           Disable color output (respects NO_COLOR env var)
  -q, --quiet          Suppress progress bars and informational output
  --metrics-addr       Expose Prometheus metrics on this address
  -V, --version        Show version and exit

Examples:
  salted check                   Check the current directory
  salted check docs/             Check everything under docs/
  salted --config salted.ini check docs/
  salted --json check docs/

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("salted version %s\n", version.Version)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Quiet: *quiet}
	ui.InitColors(globals.NoColor)

	if *metricsAddr != "" {
		startMetricsServer(*metricsAddr)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "check":
		runCheck(cmdArgs, *configPath, globals)
	case "version":
		fmt.Printf("salted version %s\n", version.Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
