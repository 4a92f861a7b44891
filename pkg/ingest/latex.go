// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import "regexp"

// Specification: https://www.ctan.org/pkg/hyperref
var patternLaTeXURL = regexp.MustCompile(`(?im)\\url\{([^{]*?)\}`)
var patternLaTeXHref = regexp.MustCompile(`(?im)\\href(\[.*\])?\{([^}]*)\}\{([^}]*?)\}`)

// ExtractLaTeX extracts \href{url}{text} and \url{url} links from a .tex
// document.
func ExtractLaTeX(content string) []Link {
	var links []Link
	for _, m := range patternLaTeXHref.FindAllStringSubmatch(content, -1) {
		links = append(links, Link{URL: m[2], LinkText: m[3]})
	}
	for _, m := range patternLaTeXURL.FindAllStringSubmatch(content, -1) {
		links = append(links, Link{URL: m[1], LinkText: m[1]})
	}
	return links
}
