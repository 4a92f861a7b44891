// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"os"

	"github.com/schollz/progressbar/v3"
)

// ProgressConfig controls whether progress bars are drawn at all: quiet
// runs and JSON output must never interleave a bar with stdout.
type ProgressConfig struct {
	Enabled bool
}

// NewProgressConfig derives a ProgressConfig from the resolved global flags.
func NewProgressConfig(globals GlobalFlags) ProgressConfig {
	return ProgressConfig{Enabled: !globals.Quiet && !globals.JSON}
}

// NewProgressBar creates a bar for one phase, or nil when progress
// reporting is disabled.
func NewProgressBar(cfg ProgressConfig, total int, description string) *progressbar.ProgressBar {
	if !cfg.Enabled {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
}

// phaseDescription returns a human-readable description for each engine phase.
func phaseDescription(phase string) string {
	switch phase {
	case "urls":
		return "Checking links"
	case "dois":
		return "Checking DOIs"
	default:
		return phase
	}
}
