// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import "regexp"

// This extractor follows the same regex-driven style as the LaTeX and
// Markdown extractors rather than pulling in a full BibTeX grammar, since
// entries are a small, well-known shape: @type{key, field = {value}, ...}.
var patternBibEntry = regexp.MustCompile(`(?is)@(\w+)\{([^,]+),(.*?)\n\}`)
var patternBibURL = regexp.MustCompile(`(?i)\burl\s*=\s*[\{"]([^}"]*)[\}"]`)
var patternBibDOI = regexp.MustCompile(`(?i)\bdoi\s*=\s*[\{"]([^}"]*)[\}"]`)

// ExtractBibTeX extracts the url and doi fields of every entry in a .bib
// document. The entry's citation key is used as the DOI's description.
func ExtractBibTeX(content string) ([]Link, []DOI) {
	var links []Link
	var dois []DOI

	for _, entry := range patternBibEntry.FindAllStringSubmatch(content, -1) {
		key := entry[2]
		body := entry[3]

		if m := patternBibURL.FindStringSubmatch(body); m != nil {
			links = append(links, Link{URL: m[1], LinkText: key})
		}
		if m := patternBibDOI.FindStringSubmatch(body); m != nil {
			dois = append(dois, DOI{Value: m[1], Description: key})
		}
	}
	return links, dois
}
