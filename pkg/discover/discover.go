// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package discover finds candidate source files under a path by extension.
package discover

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// FileType selects which supported suffixes are considered.
type FileType string

const (
	Supported FileType = "supported"
	HTML      FileType = "html"
	Tex       FileType = "tex"
	Markdown  FileType = "markdown"
)

var suffixesByType = map[FileType]map[string]bool{
	HTML:     {".htm": true, ".html": true},
	Tex:      {".tex": true},
	Markdown: {".md": true},
}

func init() {
	all := map[string]bool{}
	for _, set := range suffixesByType {
		for suffix := range set {
			all[suffix] = true
		}
	}
	all[".bib"] = true
	suffixesByType[Supported] = all
}

// ErrUnsupportedFile is returned when a single-file path does not match
// one of the supported suffixes.
var ErrUnsupportedFile = errors.New("file does not have a supported suffix")

// Suffixes returns the set of file suffixes considered for fileType.
func Suffixes(fileType FileType) map[string]bool {
	set, ok := suffixesByType[fileType]
	if !ok {
		set = suffixesByType[Supported]
	}
	return set
}

// Files finds every file under path matching fileType. If path is a single
// file it must itself match, or ErrUnsupportedFile is returned. If path
// does not exist, the underlying os.Stat error (satisfying
// os.IsNotExist) is returned unwrapped so callers can distinguish it.
func Files(path string, fileType FileType) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	suffixes := Suffixes(fileType)

	if !info.IsDir() {
		if !suffixes[filepath.Ext(path)] {
			return nil, ErrUnsupportedFile
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		return []string{abs}, nil
	}

	var found []string
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if suffixes[filepath.Ext(p)] {
			abs, err := filepath.Abs(p)
			if err != nil {
				return err
			}
			found = append(found, abs)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Strings(found)
	return found, nil
}
