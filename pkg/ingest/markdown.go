// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import "regexp"

// patternMDLink matches inline-style links: [linktext](url).
var patternMDLink = regexp.MustCompile(`(?im)\[([^\[]*)\]\(([^\)]*?)[\s\)]+`)

// patternMDLinkPointy matches angle-bracket autolinks: <url>.
var patternMDLinkPointy = regexp.MustCompile(`(?im)<([^>]*?)>`)

// ExtractMarkdown extracts both inline-style links and pointy-bracket
// autolinks from a Markdown document.
func ExtractMarkdown(content string) []Link {
	var links []Link
	for _, m := range patternMDLink.FindAllStringSubmatch(content, -1) {
		links = append(links, Link{URL: m[2], LinkText: m[1]})
	}
	for _, m := range patternMDLinkPointy.FindAllStringSubmatch(content, -1) {
		links = append(links, Link{URL: m[1], LinkText: m[1]})
	}
	return links
}
