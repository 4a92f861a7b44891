// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ExtractHTML walks the DOM of an HTML document and returns the href and
// link text of every <a> element.
func ExtractHTML(content string) []Link {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}
	var links []Link
	walkAnchors(doc, &links)
	return links
}

func walkAnchors(n *html.Node, links *[]Link) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		href, ok := attr(n, "href")
		if ok {
			*links = append(*links, Link{
				URL:      href,
				LinkText: collectText(n),
			})
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkAnchors(c, links)
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func collectText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
