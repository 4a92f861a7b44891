// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config resolves run configuration with CLI flags taking
// precedence over an INI file, which takes precedence over hardcoded
// defaults.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/rvoigt/salted/pkg/version"
)

// knownSections are the only section names a config file may contain.
// Anything else is a fatal configuration error.
var knownSections = map[string]bool{
	ini.DefaultSection: true,
	"BEHAVIOR":         true,
	"CACHE":            true,
	"FILES":            true,
	"TEMPLATE":         true,
}

// Config is the fully resolved set of run options.
type Config struct {
	SearchPath                string
	FileTypes                 string // supported|html|tex|markdown
	NumWorkers                string // "automatic" or a decimal integer
	TimeoutSeconds            int
	RaiseForDeadLinks         bool
	UserAgent                 string
	CacheFile                 string
	DontCheckAgainWithinHours int

	TemplateSearchPath string
	TemplateName       string
	WriteTo            string // "cli" or a file path
	BaseURL            string
}

// Default returns the hardcoded defaults.
func Default() Config {
	return Config{
		SearchPath:                ".",
		FileTypes:                 "supported",
		NumWorkers:                "automatic",
		TimeoutSeconds:            5,
		RaiseForDeadLinks:         false,
		UserAgent:                 fmt.Sprintf("salted/%s", version.Version),
		CacheFile:                 "salted-cache.sqlite3",
		DontCheckAgainWithinHours: 24,
		TemplateSearchPath:        "",
		TemplateName:              "default.tmpl",
		WriteTo:                   "cli",
		BaseURL:                   "",
	}
}

// LoadFile merges an INI config file over base. An empty path is a no-op.
// Any section name other than BEHAVIOR, CACHE, FILES, TEMPLATE (or the
// unnamed default section) is a fatal configuration error.
func LoadFile(path string, base Config) (Config, error) {
	if path == "" {
		return base, nil
	}
	cfg, err := ini.Load(path)
	if err != nil {
		return base, fmt.Errorf("read config file %s: %w", path, err)
	}

	for _, section := range cfg.Sections() {
		if !knownSections[section.Name()] {
			return base, fmt.Errorf("config file %s: unknown section [%s]", path, section.Name())
		}
	}

	out := base
	behavior := cfg.Section("BEHAVIOR")
	if behavior.HasKey("file_types") {
		out.FileTypes = behavior.Key("file_types").String()
	}
	if behavior.HasKey("num_workers") {
		out.NumWorkers = behavior.Key("num_workers").String()
	}
	if behavior.HasKey("timeout") {
		out.TimeoutSeconds = behavior.Key("timeout").MustInt(out.TimeoutSeconds)
	}
	if behavior.HasKey("raise_for_dead_links") {
		out.RaiseForDeadLinks = behavior.Key("raise_for_dead_links").MustBool(out.RaiseForDeadLinks)
	}
	if behavior.HasKey("user_agent") {
		out.UserAgent = behavior.Key("user_agent").String()
	}

	cache := cfg.Section("CACHE")
	if cache.HasKey("cache_file") {
		out.CacheFile = cache.Key("cache_file").String()
	}
	if cache.HasKey("dont_check_again_within_hours") {
		out.DontCheckAgainWithinHours = cache.Key("dont_check_again_within_hours").MustInt(out.DontCheckAgainWithinHours)
	}

	files := cfg.Section("FILES")
	if files.HasKey("searchpath") {
		out.SearchPath = files.Key("searchpath").String()
	}

	tmpl := cfg.Section("TEMPLATE")
	if tmpl.HasKey("template_searchpath") {
		out.TemplateSearchPath = tmpl.Key("template_searchpath").String()
	}
	if tmpl.HasKey("template_name") {
		out.TemplateName = tmpl.Key("template_name").String()
	}
	if tmpl.HasKey("write_to") {
		out.WriteTo = tmpl.Key("write_to").String()
	}
	if tmpl.HasKey("base_url") {
		out.BaseURL = tmpl.Key("base_url").String()
	}

	return out, nil
}
